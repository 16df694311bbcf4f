package enrichers

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
)

const attr4CastableWhileCasting = 0x80

// unknownName is used when an entity has no SpellName row.
const unknownName = "Unknown"

// labelEnricher lists the label ids of an entity. Labels group entities for
// label-based modifiers.
var labelEnricher = &enrich.Enricher{
	Name:     "label",
	Tables:   []enrich.TableRef{spellLabelBySpell},
	Provides: []string{LabelKey.Name()},
	Compute: func(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
		labels, err := in.Table(tableSpellLabel, keySpellID)
		if err != nil {
			return nil, err
		}
		rows := labels.All(e.ID)
		if len(rows) == 0 {
			return nil, nil
		}
		ids := make([]int64, len(rows))
		for i, r := range rows {
			ids[i] = r.Int("LabelID")
		}
		out := entity.Fields{}
		LabelKey.Put(out, ids)
		return out, nil
	},
}

// classMaskEnricher reads the class family mask used to match class-wide effects.
var classMaskEnricher = &enrich.Enricher{
	Name:     "classMask",
	Tables:   []enrich.TableRef{spellClassOptionsBySpell},
	Provides: []string{ClassMaskKey.Name()},
	Compute: func(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
		options, err := in.Table(tableSpellClassOptions, keySpellID)
		if err != nil {
			return nil, err
		}
		row, ok := options.First(e.ID)
		if !ok {
			return nil, nil
		}
		out := entity.Fields{}
		ClassMaskKey.Put(out, ClassMask{
			row.Int("SpellClassMask_0"),
			row.Int("SpellClassMask_1"),
			row.Int("SpellClassMask_2"),
			row.Int("SpellClassMask_3"),
		})
		return out, nil
	},
}

// nameEnricher reads the display name, NFC-normalized.
var nameEnricher = &enrich.Enricher{
	Name:     "name",
	Tables:   []enrich.TableRef{spellNameByID},
	Provides: []string{NameKey.Name()},
	Compute: func(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
		names, err := in.Table(tableSpellName, keyID)
		if err != nil {
			return nil, err
		}
		name := unknownName
		if row, ok := names.First(e.ID); ok {
			name = norm.NFC.String(row.String("Name_lang"))
		}
		out := entity.Fields{}
		NameKey.Put(out, name)
		return out, nil
	},
}

// iconEnricher reads the icon file id.
var iconEnricher = &enrich.Enricher{
	Name:     "icon",
	Tables:   []enrich.TableRef{spellMiscBySpell},
	Provides: []string{IconKey.Name()},
	Compute: func(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
		misc, err := in.Table(tableSpellMisc, keySpellID)
		if err != nil {
			return nil, err
		}
		row, ok := misc.First(e.ID)
		if !ok {
			return nil, nil
		}
		out := entity.Fields{}
		IconKey.Put(out, row.Int("SpellIconFileDataID"))
		return out, nil
	},
}

// castTimeEnricher reads the base cast time. Instant abilities get no field.
var castTimeEnricher = &enrich.Enricher{
	Name:     "castTime",
	Tables:   []enrich.TableRef{spellMiscBySpell, spellCastTimesByID},
	Provides: []string{CastTimeKey.Name()},
	Compute: func(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
		misc, err := in.Table(tableSpellMisc, keySpellID)
		if err != nil {
			return nil, err
		}
		castTimes, err := in.Table(tableSpellCastTimes, keyID)
		if err != nil {
			return nil, err
		}

		row, ok := misc.First(e.ID)
		if !ok || row.Int("CastingTimeIndex") == 0 {
			return nil, nil
		}
		ct, ok := castTimes.First(row.Int("CastingTimeIndex"))
		if !ok || ct.Int("Base") == 0 {
			return nil, nil
		}

		// TODO: apply cast time modifier effects once their aura types are mapped.
		out := entity.Fields{}
		CastTimeKey.Put(out, CastTime{Duration: ct.Int("Base")})
		return out, nil
	},
}

// castableWhileCastingEnricher flags abilities usable during another cast.
var castableWhileCastingEnricher = &enrich.Enricher{
	Name:     "castableWhileCasting",
	Tables:   []enrich.TableRef{spellMiscBySpell},
	Provides: []string{CastableWhileCastingKey.Name()},
	Compute: func(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
		misc, err := in.Table(tableSpellMisc, keySpellID)
		if err != nil {
			return nil, err
		}
		row, ok := misc.First(e.ID)
		if !ok || row.Int("Attributes_4")&attr4CastableWhileCasting == 0 {
			return nil, nil
		}
		out := entity.Fields{}
		CastableWhileCastingKey.Put(out, true)
		return out, nil
	},
}
