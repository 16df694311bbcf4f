package enrichers

import (
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
)

// SpellMisc attribute flags read by passive.
const (
	attr0Passive                    = 0x40
	attr0DoNotDisplay               = 0x80
	attr4NotInSpellbook             = 0x8000
	attr8NotInSpellbookUnlessLearnt = 0x2000
)

// passiveEnricher flags passive entities and whether they are hidden from the
// spellbook. Hidden passives still matter: they carry modifiers.
var passiveEnricher = &enrich.Enricher{
	Name:     "passive",
	Tables:   []enrich.TableRef{spellMiscBySpell},
	Provides: []string{entity.Passive.Name(), HiddenKey.Name()},
	Compute:  computePassive,
}

func computePassive(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
	misc, err := in.Table(tableSpellMisc, keySpellID)
	if err != nil {
		return nil, err
	}

	out := entity.Fields{}
	row, ok := misc.First(e.ID)
	if !ok {
		entity.Passive.Put(out, false)
		return out, nil
	}

	attr0 := row.Int("Attributes_0")
	attr4 := row.Int("Attributes_4")
	attr8 := row.Int("Attributes_8")

	var hidden Hidden
	if attr8&attr8NotInSpellbookUnlessLearnt != 0 {
		hidden = HiddenUnlessLearned
	}
	// Both may be set; always wins.
	if attr0&attr0DoNotDisplay != 0 || attr4&attr4NotInSpellbook != 0 {
		hidden = HiddenAlways
	}

	entity.Passive.Put(out, attr0&attr0Passive != 0)
	if hidden != "" {
		HiddenKey.Put(out, hidden)
	}
	return out, nil
}
