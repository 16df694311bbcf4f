package entity

import "fmt"

// Kind names the variant of an entity. It is the "type" field in catalogs and
// in JSON output.
type Kind string

const (
	// KindBaseline is always available to the player for their class/spec.
	KindBaseline Kind = "baseline"

	// KindLearned is taught by another entity and shares its availability.
	KindLearned Kind = "learned"

	// KindTalent comes from a talent tree entry.
	KindTalent Kind = "talent"

	// KindTemporary is available for a limited time, e.g. while a buff is up.
	KindTemporary Kind = "temporary"

	// KindLegacyTalent comes from the row/column talent grid of the legacy ruleset.
	KindLegacyTalent Kind = "legacy-talent"
)

// Kinds lists every supported variant kind.
var Kinds = []Kind{KindBaseline, KindLearned, KindTalent, KindTemporary, KindLegacyTalent}

// ParseKind validates a kind string.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q: must be one of %v", s, Kinds)
}

// Variant is a sealed tagged union over the entity kinds.
// Only the types in this file implement it.
type Variant interface {
	Kind() Kind
	attrs(m map[string]any)
}

// Baseline is the variant of always-available entities.
type Baseline struct{}

func (Baseline) Kind() Kind           { return KindBaseline }
func (Baseline) attrs(map[string]any) {}

// Learned is an entity taught by another entity.
type Learned struct {
	TaughtBy int64
}

func (Learned) Kind() Kind { return KindLearned }
func (v Learned) attrs(m map[string]any) {
	m["taughtBy"] = v.TaughtBy
}

// Talent is an entity granted by one or more talent tree entries.
type Talent struct {
	RequiresTalentEntry []int64
	VisibleSpellID      int64

	// Granted talents are generally not included in talent exports.
	Granted bool
}

func (Talent) Kind() Kind { return KindTalent }
func (v Talent) attrs(m map[string]any) {
	entries := v.RequiresTalentEntry
	if entries == nil {
		entries = []int64{}
	}
	m["requiresTalentEntry"] = entries
	if v.VisibleSpellID != 0 {
		m["visibleSpellId"] = v.VisibleSpellID
	}
	if v.Granted {
		m["granted"] = true
	}
}

// Temporary is an entity that is only available while granted by another.
type Temporary struct {
	GrantedBy int64
}

func (Temporary) Kind() Kind { return KindTemporary }
func (v Temporary) attrs(m map[string]any) {
	m["grantedBy"] = v.GrantedBy
}

// LegacyTalent is a talent from the legacy row/column grid.
type LegacyTalent struct {
	Row    int
	Column int
}

func (LegacyTalent) Kind() Kind { return KindLegacyTalent }
func (v LegacyTalent) attrs(m map[string]any) {
	m["row"] = v.Row
	m["column"] = v.Column
}
