package enrichers

import (
	"slices"

	"github.com/roach88/grimoire/internal/dbc"
	"github.com/roach88/grimoire/internal/effect"
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
)

// effectsEnricher collects every effect in the collection that applies to
// an entity. An effect row applies when its class mask matches the
// entity's class mask, or when it targets the entity's charge category.
//
// Effects are not interpreted here. Point modifiers from label-based
// modifiers are resolved one level deep.
var effectsEnricher = &enrich.Enricher{
	Name:         "effects",
	Dependencies: deps(classMaskEnricher, labelEnricher),
	Tables:       []enrich.TableRef{spellEffectBySpell, spellCategoriesBySpell},
	Requires:     []string{ClassMaskKey.Name(), LabelKey.Name()},
	Provides:     []string{effect.Effects.Name()},
	Compute:      computeEffects,
}

// labelModifier is an ADD_FLAT_MODIFIER_BY_SPELL_LABEL effect owned by
// Source that replaces the points of effect EffectIndex on any entity with
// Label.
type labelModifier struct {
	Source      int64
	EffectIndex int64
	Label       int64
	Points      float64
}

func computeEffects(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
	effectRows, err := in.Table(tableSpellEffect, keySpellID)
	if err != nil {
		return nil, err
	}
	categories, err := in.Table(tableSpellCategories, keySpellID)
	if err != nil {
		return nil, err
	}

	modifiers, err := enrich.Memo(in, "labelModifiers", func() ([]labelModifier, error) {
		return collectLabelModifiers(in.Entities, effectRows), nil
	})
	if err != nil {
		return nil, err
	}

	category, hasCategory := categories.First(e.ID)
	mask, hasMask := ClassMaskKey.Get(e)

	out := []effect.Effect{}
	for _, source := range in.Entities.Entities() {
		for _, row := range effectRows.All(source.ID) {
			matched := hasMask && mask.Matches(rowClassMask(row))
			if !matched && !(hasCategory && matchesCategory(row, category)) {
				continue
			}
			out = append(out, effect.Effect{
				SourceID:       source.ID,
				Aura:           row.Int("EffectAura"),
				Misc0:          row.Int("EffectMiscValue_0"),
				Misc1:          row.Int("EffectMiscValue_1"),
				BasePoints:     basePoints(row),
				PointModifiers: pointModifiers(source, row.Int("EffectIndex"), modifiers),
				Period:         max(row.Int("EffectAuraPeriod"), 0),
				TriggeredSpell: max(row.Int("EffectTriggerSpell"), 0),
			})
		}
	}

	fields := entity.Fields{}
	effect.Effects.Put(fields, out)
	return fields, nil
}

// collectLabelModifiers lists every label modifier owned by an entity in
// the collection, in collection then row order.
func collectLabelModifiers(entities *entity.Index, effectRows *dbc.Table) []labelModifier {
	var mods []labelModifier
	for _, other := range entities.Entities() {
		for _, row := range effectRows.All(other.ID) {
			if row.Int("EffectAura") != effect.AuraAddFlatModifierBySpellLabel {
				continue
			}
			idx, ok := effect.EffectIndexFor(row.Int("EffectMiscValue_0"))
			if !ok {
				continue
			}
			mods = append(mods, labelModifier{
				Source:      other.ID,
				EffectIndex: idx,
				Label:       row.Int("EffectMiscValue_1"),
				Points:      basePoints(row),
			})
		}
	}
	return mods
}

// pointModifiers returns the point overrides that apply to effect
// effectIndex of source. When one entity has several matching modifiers
// the last one wins.
func pointModifiers(source *entity.Entity, effectIndex int64, mods []labelModifier) map[int64]float64 {
	labels := LabelKey.Value(source)
	if len(labels) == 0 {
		return nil
	}

	var out map[int64]float64
	for _, m := range mods {
		if m.EffectIndex != effectIndex || !slices.Contains(labels, m.Label) {
			continue
		}
		if out == nil {
			out = make(map[int64]float64)
		}
		out[m.Source] = m.Points
	}
	return out
}

// matchesCategory reports whether a charge category effect targets the
// category of the entity. Category 0 means "no category" and never matches.
func matchesCategory(row, category dbc.Row) bool {
	if !effect.ChargeCategoryAura(row.Int("EffectAura")) {
		return false
	}
	cat := category.Int("ChargeCategory")
	return cat != 0 && cat == row.Int("EffectMiscValue_0")
}

func rowClassMask(row dbc.Row) ClassMask {
	return ClassMask{
		row.Int("EffectSpellClassMask_0"),
		row.Int("EffectSpellClassMask_1"),
		row.Int("EffectSpellClassMask_2"),
		row.Int("EffectSpellClassMask_3"),
	}
}

// basePoints prefers the float column; rows that only carry an integer
// value leave it at zero.
func basePoints(row dbc.Row) float64 {
	if f := row.Float("EffectBasePointsF"); f != 0 {
		return f
	}
	return row.Float("EffectBasePoints")
}
