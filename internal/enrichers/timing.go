package enrichers

import (
	"github.com/roach88/grimoire/internal/effect"
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
)

const (
	// gcdCategory is the start recovery category of abilities on the
	// global cooldown. Abilities in category 0 are off the GCD.
	gcdCategory = 133

	// baseGCD applies when SpellCooldowns has no StartRecoveryTime.
	baseGCD = 1500

	defenseTypeMelee  = 2
	defenseTypeRanged = 3

	attr0IsAbility        = 0x10
	attr0UsesRangedWeapon = 0x2
)

// gcdEnricher computes the global cooldown of active abilities.
//
// Weapon-based abilities (melee or ranged defense type, or flagged as an
// ability or ranged weapon user) are not hasted by default; everything
// else is. Effects can reduce the GCD or make it hasted.
var gcdEnricher = &enrich.Enricher{
	Name:         "gcd",
	Dependencies: deps(effectsEnricher, passiveEnricher),
	Tables:       []enrich.TableRef{spellCategoriesBySpell, spellCooldownsBySpell, spellMiscBySpell},
	Requires:     []string{entity.Passive.Name(), effect.Effects.Name()},
	Provides:     []string{GCDKey.Name()},
	Compute:      computeGCD,
}

func computeGCD(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
	if entity.Passive.Value(e) {
		return nil, nil
	}

	categories, err := in.Table(tableSpellCategories, keySpellID)
	if err != nil {
		return nil, err
	}
	cooldowns, err := in.Table(tableSpellCooldowns, keySpellID)
	if err != nil {
		return nil, err
	}
	misc, err := in.Table(tableSpellMisc, keySpellID)
	if err != nil {
		return nil, err
	}

	category, ok := categories.First(e.ID)
	if !ok || category.Int("StartRecoveryCategory") != gcdCategory {
		return nil, nil
	}

	var attr0 int64
	if row, ok := misc.First(e.ID); ok {
		attr0 = row.Int("Attributes_0")
	}
	defense := category.Int("DefenseType")
	weaponBased := defense == defenseTypeMelee ||
		defense == defenseTypeRanged ||
		attr0&attr0IsAbility != 0 ||
		attr0&attr0UsesRangedWeapon != 0

	base := float64(baseGCD)
	if cd, ok := cooldowns.First(e.ID); ok && cd.Int("StartRecoveryTime") > 0 {
		base = float64(cd.Int("StartRecoveryTime"))
	}

	result := effect.Accumulate(in.Entities, e, GCD{Duration: base, Hasted: !weaponBased},
		func(acc *GCD, fx effect.Effect) *GCD {
			current := base
			if acc != nil {
				current = acc.Duration
			}
			reduction := gcdReduction(fx, current)
			hasted := fx.Aura == effect.AuraModGCDByHaste
			if !hasted && reduction == 0 {
				return acc
			}

			var next GCD
			if acc != nil {
				next = *acc
			}
			next.Duration -= reduction
			next.Hasted = next.Hasted || hasted
			return &next
		})
	if result == nil {
		return nil, nil
	}

	out := entity.Fields{}
	GCDKey.Put(out, result)
	return out, nil
}

// gcdReduction returns how much fx shortens a GCD of duration current.
// Percentage modifiers apply to the running duration.
func gcdReduction(fx effect.Effect, current float64) float64 {
	if fx.Misc0 != effect.MiscStartCooldown {
		return 0
	}
	switch fx.Aura {
	case effect.AuraAddFlatModifier:
		return -fx.BasePoints
	case effect.AuraAddPctModifier:
		return -(fx.BasePoints / 100) * current
	}
	return 0
}

// chargesEnricher computes the charge count and recharge time of abilities
// in a charge category.
var chargesEnricher = &enrich.Enricher{
	Name:         "charges",
	Dependencies: deps(passiveEnricher, effectsEnricher),
	Tables:       []enrich.TableRef{spellCategoryByID, spellCategoriesBySpell},
	Requires:     []string{entity.Passive.Name(), effect.Effects.Name()},
	Provides:     []string{ChargesKey.Name(), CooldownKey.Name()},
	Compute:      computeCharges,
}

func computeCharges(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
	if entity.Passive.Value(e) {
		return nil, nil
	}

	categories, err := in.Table(tableSpellCategories, keySpellID)
	if err != nil {
		return nil, err
	}
	definitions, err := in.Table(tableSpellCategory, keyID)
	if err != nil {
		return nil, err
	}

	row, ok := categories.First(e.ID)
	if !ok || row.Int("ChargeCategory") == 0 {
		return nil, nil
	}
	def, ok := definitions.First(row.Int("ChargeCategory"))
	if !ok {
		return nil, nil
	}

	recovery := def.Float("ChargeRecoveryTime")

	charges := effect.Accumulate(in.Entities, e, Charges{Max: def.Float("MaxCharges")},
		func(acc *Charges, fx effect.Effect) *Charges {
			if fx.Aura != effect.AuraModMaxCharges {
				return acc
			}
			var next Charges
			if acc != nil {
				next = *acc
			}
			next.Max += fx.BasePoints
			return &next
		})

	// TODO: charge recovery by haste (aura 457) once its scaling is known.
	cooldown := effect.Accumulate(in.Entities, e, Cooldown{Duration: recovery},
		func(acc *Cooldown, fx effect.Effect) *Cooldown {
			if fx.Aura != effect.AuraChargeRecoveryMultiplier {
				return acc
			}
			var next Cooldown
			if acc != nil {
				next = *acc
			}
			next.Duration += recovery * (fx.BasePoints / 100)
			return &next
		})

	out := entity.Fields{}
	if charges != nil {
		ChargesKey.Put(out, charges)
	}
	if cooldown != nil {
		CooldownKey.Put(out, cooldown)
	}
	return out, nil
}

// cooldownEnricher computes the cooldown of abilities without charges.
// A charge recharge time set by charges takes priority.
var cooldownEnricher = &enrich.Enricher{
	Name:         "cooldown",
	Dependencies: deps(chargesEnricher, effectsEnricher, passiveEnricher),
	Tables:       []enrich.TableRef{spellCooldownsBySpell},
	Requires:     []string{entity.Passive.Name(), effect.Effects.Name(), CooldownKey.Name()},
	Provides:     []string{CooldownKey.Name()},
	Compute:      computeCooldown,
}

func computeCooldown(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
	if entity.Passive.Value(e) || CooldownKey.Has(e) {
		return nil, nil
	}

	cooldowns, err := in.Table(tableSpellCooldowns, keySpellID)
	if err != nil {
		return nil, err
	}
	row, ok := cooldowns.First(e.ID)
	if !ok {
		return nil, nil
	}

	// CategoryRecoveryTime takes precedence when both are set.
	base := row.Float("RecoveryTime")
	if crt := row.Float("CategoryRecoveryTime"); crt > 0 {
		base = crt
	}

	result := effect.Accumulate(in.Entities, e, Cooldown{Duration: base},
		func(acc *Cooldown, fx effect.Effect) *Cooldown {
			var delta float64
			if fx.Aura == effect.AuraAddFlatModifier && fx.Misc0 == effect.MiscCooldown {
				delta = fx.BasePoints
			}
			hasted := fx.Aura == effect.AuraModCooldownByHaste
			if !hasted && delta == 0 {
				return acc
			}

			var next Cooldown
			if acc != nil {
				next = *acc
			}
			next.Duration += delta
			next.Hasted = next.Hasted || hasted
			return &next
		})
	if result == nil || (result.Base.Duration == 0 && len(result.Modifiers) == 0) {
		return nil, nil
	}

	out := entity.Fields{}
	CooldownKey.Put(out, result)
	return out, nil
}
