package enrichers

import (
	"github.com/roach88/grimoire/internal/effect"
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
)

// temporaryOverrideEnricher finds the entity a temporary entity replaces on
// the action bar. The granting entity carries an override effect whose
// base points name the temporary entity and whose class mask selects the
// entity being replaced.
var temporaryOverrideEnricher = &enrich.Enricher{
	Name:         "temporaryOverride",
	Dependencies: deps(classMaskEnricher),
	Tables:       []enrich.TableRef{spellEffectBySpell},
	Requires:     []string{ClassMaskKey.Name()},
	Provides:     []string{entity.Overrides.Name()},
	Compute:      computeTemporaryOverride,
}

func computeTemporaryOverride(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
	temp, ok := e.Variant.(entity.Temporary)
	if !ok {
		return nil, nil
	}

	effectRows, err := in.Table(tableSpellEffect, keySpellID)
	if err != nil {
		return nil, err
	}

	for _, row := range effectRows.All(temp.GrantedBy) {
		aura := row.Int("EffectAura")
		if aura != effect.AuraOverrideActionbarSpells && aura != effect.AuraOverrideActionbarSpellsTriggered {
			continue
		}
		id := float64(e.ID)
		if row.Float("EffectBasePointsF") != id && row.Float("EffectBasePoints") != id {
			continue
		}

		filter := rowClassMask(row)
		for _, other := range in.Entities.Entities() {
			if other.ID == e.ID {
				continue
			}
			mask, ok := ClassMaskKey.Get(other)
			if !ok || !mask.Matches(filter) {
				continue
			}
			out := entity.Fields{}
			entity.Overrides.Put(out, other.ID)
			return out, nil
		}
	}
	return nil, nil
}
