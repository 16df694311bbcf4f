package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/grimoire/internal/engine"
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/enrichers"
	"github.com/roach88/grimoire/internal/entity"
	"github.com/roach88/grimoire/internal/plan"
	"github.com/roach88/grimoire/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when the run matched expect_error (or succeeded when
	// none is set) and every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	RunID     string           `json:"runId,omitempty"`
	Plan      []string         `json:"plan"`
	Tables    []string         `json:"tables"`
	Entities  []*entity.Entity `json:"entities"`
	ErrorCode string           `json:"errorCode,omitempty"`

	store *testutil.CountingStore
	index *entity.Index
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Run executes a scenario. The error is non-nil only when the scenario
// itself cannot run (unknown enricher, bad entity); enrichment failures
// and assertion failures are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	requested, err := enrichers.Select(scenario.Enrichers)
	if err != nil {
		return nil, err
	}

	p, err := plan.Build(requested)
	if err != nil && scenario.ExpectError == "" {
		return nil, fmt.Errorf("plan scenario %s: %w", scenario.Name, err)
	}

	entities := make([]*entity.Entity, 0, len(scenario.Entities))
	for _, spec := range scenario.Entities {
		e, err := spec.Entity()
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}

	store := testutil.NewCountingStore(testutil.NewMemorySource(fillTables(scenario.Tables, p)))
	eng := engine.New(store,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithRunIDGenerator(testutil.NewConstantRunID("scenario-"+scenario.Name)),
	)

	result := &Result{
		Pass:     true,
		Errors:   []string{},
		Plan:     []string{},
		Tables:   []string{},
		Entities: entities,
		store:    store,
	}

	report, err := eng.Execute(context.Background(), requested, entities)
	if err != nil {
		result.ErrorCode = errorCode(err)
		switch {
		case scenario.ExpectError == "":
			result.AddError(fmt.Sprintf("run failed: %v", err))
		case scenario.ExpectError != result.ErrorCode:
			result.AddError(fmt.Sprintf("expected error %s, got %s: %v", scenario.ExpectError, result.ErrorCode, err))
		}
		return result, nil
	}
	if scenario.ExpectError != "" {
		result.AddError(fmt.Sprintf("expected error %s, run succeeded", scenario.ExpectError))
	}

	result.RunID = report.RunID
	result.Plan = report.Plan.Names()
	for _, t := range report.Plan.Tables {
		result.Tables = append(result.Tables, t.String())
	}
	result.index, _ = entity.NewIndex(entities)

	for i, a := range scenario.Assertions {
		if err := evaluate(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

// fillTables adds a header-only table for every table the plan reads that
// the scenario does not provide. The header holds the key columns.
func fillTables(given map[string]string, p *plan.Plan) map[string]string {
	out := make(map[string]string, len(given))
	for name, data := range given {
		out[name] = data
	}
	if p == nil {
		return out
	}

	keys := make(map[string][]string)
	var names []string
	for _, t := range p.Tables {
		if _, ok := given[t.Name]; ok {
			continue
		}
		if _, ok := keys[t.Name]; !ok {
			names = append(names, t.Name)
		}
		if !slices.Contains(keys[t.Name], t.Key) {
			keys[t.Name] = append(keys[t.Name], t.Key)
		}
	}
	for _, name := range names {
		out[name] = strings.Join(keys[name], ",") + "\n"
	}
	return out
}

// errorCode returns the outermost enrich error code, or "ERROR".
func errorCode(err error) string {
	var ee *enrich.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	return "ERROR"
}

// Loads reports how many times table name/key was loaded in the run.
func (r *Result) Loads(ref enrich.TableRef) int {
	if r.store == nil {
		return 0
	}
	return r.store.Loads(ref.Name, ref.Key)
}

func parseTableRef(s string) (enrich.TableRef, error) {
	name, key, ok := strings.Cut(s, "/")
	if !ok || name == "" || key == "" {
		return enrich.TableRef{}, fmt.Errorf("table %q must be Name/Key", s)
	}
	return enrich.TableRef{Name: name, Key: key}, nil
}
