package effect

import "github.com/roach88/grimoire/internal/entity"

// Effect is one effect row that targets an entity.
type Effect struct {
	// SourceID is the entity that owns the effect.
	SourceID int64 `json:"sourceId"`

	Aura       int64   `json:"aura"`
	Misc0      int64   `json:"misc0"`
	Misc1      int64   `json:"misc1"`
	BasePoints float64 `json:"basePoints"`

	// PointModifiers overrides BasePoints when another entity is also
	// known: other entity id -> replacement points.
	PointModifiers map[int64]float64 `json:"pointModifiers,omitempty"`

	// Period and TriggeredSpell are 0 when absent.
	Period         int64 `json:"period,omitempty"`
	TriggeredSpell int64 `json:"triggeredSpell,omitempty"`
}

// Effects is the field holding the effects that target an entity.
var Effects = entity.NewKey[[]Effect]("effects")

// Aura types.
const (
	AuraPeriodicTriggerSpell             = 23
	AuraApplyGlyph                       = 74
	AuraAddFlatModifier                  = 107
	AuraAddPctModifier                   = 108
	AuraAddFlatModifierBySpellLabel      = 219
	AuraOverrideActionbarSpells          = 332
	AuraOverrideActionbarSpellsTriggered = 333
	AuraModMaxCharges                    = 411
	AuraModCooldownByHaste               = 416
	AuraModGCDByHaste                    = 417
	AuraChargeRecoveryMultiplier         = 454
	AuraChargeRecoveryByHaste            = 457
)

// Misc0 values of modifier auras naming what they modify.
const (
	MiscEffectIndex0  = 3
	MiscCooldown      = 11
	MiscEffectIndex1  = 12
	MiscStartCooldown = 21
	MiscEffectIndex2  = 23
	MiscEffectIndex3  = 32
	MiscEffectIndex4  = 33
)

var effectIndexByMisc = map[int64]int64{
	MiscEffectIndex0: 0,
	MiscEffectIndex1: 1,
	MiscEffectIndex2: 2,
	MiscEffectIndex3: 3,
	MiscEffectIndex4: 4,
}

// EffectIndexFor maps a label modifier's misc0 to the effect index it
// modifies. ok is false when misc0 does not name an effect index.
func EffectIndexFor(misc0 int64) (index int64, ok bool) {
	index, ok = effectIndexByMisc[misc0]
	return index, ok
}

// ChargeCategoryAura reports whether an aura targets a charge category
// rather than individual entities.
func ChargeCategoryAura(aura int64) bool {
	switch aura {
	case AuraModMaxCharges, AuraChargeRecoveryMultiplier, AuraChargeRecoveryByHaste:
		return true
	}
	return false
}
