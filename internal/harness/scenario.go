package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/grimoire/internal/entity"
)

// Scenario defines one enrichment test case.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Enrichers lists the built-in enrichers to request. Empty requests all.
	Enrichers []string `yaml:"enrichers,omitempty"`

	// Tables maps table name to CSV content (header row first).
	Tables map[string]string `yaml:"tables,omitempty"`

	// Entities is the collection to enrich, in order.
	Entities []EntitySpec `yaml:"entities"`

	// ExpectError is the error code the run must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the enriched entities and the plan.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// EntitySpec is an entity as written in a scenario.
type EntitySpec struct {
	ID   int64  `yaml:"id"`
	Type string `yaml:"type"`

	TaughtBy            int64   `yaml:"taughtBy,omitempty"`
	GrantedBy           int64   `yaml:"grantedBy,omitempty"`
	RequiresTalentEntry []int64 `yaml:"requiresTalentEntry,omitempty"`
	VisibleSpellID      int64   `yaml:"visibleSpellId,omitempty"`
	Granted             bool    `yaml:"granted,omitempty"`
	Row                 int     `yaml:"row,omitempty"`
	Column              int     `yaml:"column,omitempty"`
	Overrides           int64   `yaml:"overrides,omitempty"`
}

// Entity builds the entity.
func (s EntitySpec) Entity() (*entity.Entity, error) {
	kind, err := entity.ParseKind(s.Type)
	if err != nil {
		return nil, fmt.Errorf("entity %d: %w", s.ID, err)
	}

	var v entity.Variant
	switch kind {
	case entity.KindBaseline:
		v = entity.Baseline{}
	case entity.KindLearned:
		v = entity.Learned{TaughtBy: s.TaughtBy}
	case entity.KindTalent:
		v = entity.Talent{RequiresTalentEntry: s.RequiresTalentEntry, VisibleSpellID: s.VisibleSpellID, Granted: s.Granted}
	case entity.KindTemporary:
		v = entity.Temporary{GrantedBy: s.GrantedBy}
	case entity.KindLegacyTalent:
		v = entity.LegacyTalent{Row: s.Row, Column: s.Column}
	}

	e := entity.New(s.ID, v)
	if s.Overrides != 0 {
		entity.Overrides.Set(e, s.Overrides)
	}
	return e, nil
}

// Assertion validates part of a run result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Entity and Field select an enriched value (field_equals,
	// field_absent, applied).
	Entity int64  `yaml:"entity,omitempty"`
	Field  string `yaml:"field,omitempty"`

	// Expect is compared against the value. Maps match as subsets.
	Expect any `yaml:"expect,omitempty"`

	// Known lists the entity ids treated as known (applied).
	Known []int64 `yaml:"known,omitempty"`

	// Enrichers is the expected relative plan order (plan_order).
	Enrichers []string `yaml:"enrichers,omitempty"`

	// Table is "Name/Key" and Count the expected load count (table_loads).
	Table string `yaml:"table,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFieldEquals = "field_equals"
	AssertFieldAbsent = "field_absent"
	AssertApplied     = "applied"
	AssertPlanOrder   = "plan_order"
	AssertTableLoads  = "table_loads"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Entities) == 0 {
		return fmt.Errorf("entities list is required and must be non-empty")
	}
	if s.ExpectError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	for i, e := range s.Entities {
		if e.ID <= 0 {
			return fmt.Errorf("entities[%d]: id must be positive", i)
		}
		if _, err := entity.ParseKind(e.Type); err != nil {
			return fmt.Errorf("entities[%d]: %w", i, err)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertFieldEquals, AssertApplied:
		if a.Entity == 0 || a.Field == "" {
			return fmt.Errorf("assertions[%d]: entity and field are required for %s", index, a.Type)
		}
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertFieldAbsent:
		if a.Entity == 0 || a.Field == "" {
			return fmt.Errorf("assertions[%d]: entity and field are required for field_absent", index)
		}
	case AssertPlanOrder:
		if len(a.Enrichers) == 0 {
			return fmt.Errorf("assertions[%d]: enrichers list is required for plan_order", index)
		}
	case AssertTableLoads:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for table_loads", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for table_loads", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
