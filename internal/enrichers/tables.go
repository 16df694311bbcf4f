package enrichers

import "github.com/roach88/grimoire/internal/enrich"

// Table names.
const (
	tableSpellMisc         = "SpellMisc"
	tableSpellLabel        = "SpellLabel"
	tableSpellClassOptions = "SpellClassOptions"
	tableSpellName         = "SpellName"
	tableSpellCastTimes    = "SpellCastTimes"
	tableSpellEffect       = "SpellEffect"
	tableSpellCategories   = "SpellCategories"
	tableSpellCategory     = "SpellCategory"
	tableSpellCooldowns    = "SpellCooldowns"
	tableSpellDuration     = "SpellDuration"
)

// Key columns.
const (
	keySpellID = "SpellID"
	keyID      = "ID"
)

var (
	spellMiscBySpell         = enrich.TableRef{Name: tableSpellMisc, Key: keySpellID}
	spellLabelBySpell        = enrich.TableRef{Name: tableSpellLabel, Key: keySpellID}
	spellClassOptionsBySpell = enrich.TableRef{Name: tableSpellClassOptions, Key: keySpellID}
	spellNameByID            = enrich.TableRef{Name: tableSpellName, Key: keyID}
	spellCastTimesByID       = enrich.TableRef{Name: tableSpellCastTimes, Key: keyID}
	spellEffectBySpell       = enrich.TableRef{Name: tableSpellEffect, Key: keySpellID}
	spellCategoriesBySpell   = enrich.TableRef{Name: tableSpellCategories, Key: keySpellID}
	spellCategoryByID        = enrich.TableRef{Name: tableSpellCategory, Key: keyID}
	spellCooldownsBySpell    = enrich.TableRef{Name: tableSpellCooldowns, Key: keySpellID}
	spellDurationByID        = enrich.TableRef{Name: tableSpellDuration, Key: keyID}
)

// deps builds a Dependencies map keyed by enricher name.
func deps(list ...*enrich.Enricher) map[string]*enrich.Enricher {
	m := make(map[string]*enrich.Enricher, len(list))
	for _, e := range list {
		m[e.Name] = e
	}
	return m
}
