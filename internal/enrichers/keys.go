package enrichers

import (
	"github.com/roach88/grimoire/internal/effect"
	"github.com/roach88/grimoire/internal/entity"
)

// Field keys written by this package. Passive, Overrides and Effects live
// in the entity and effect packages because other packages read them.
var (
	HiddenKey               = entity.NewKey[Hidden]("hidden")
	LabelKey                = entity.NewKey[[]int64]("label")
	ClassMaskKey            = entity.NewKey[ClassMask]("classMask")
	NameKey                 = entity.NewKey[string]("name")
	IconKey                 = entity.NewKey[int64]("iconID")
	CastTimeKey             = entity.NewKey[CastTime]("castTime")
	CastableWhileCastingKey = entity.NewKey[bool]("castableWhileCasting")
	ChannelKey              = entity.NewKey[Channel]("channel")
	GCDKey                  = entity.NewKey[*effect.Result[GCD]]("gcd")
	ChargesKey              = entity.NewKey[*effect.Result[Charges]]("charges")
	CooldownKey             = entity.NewKey[*effect.Result[Cooldown]]("cooldown")
)

// Hidden says when an entity is left out of the spellbook.
type Hidden string

const (
	HiddenAlways        Hidden = "always"
	HiddenUnlessLearned Hidden = "unless-learned"
)

// ClassMask is the four-word class family mask of an entity.
type ClassMask [4]int64

// Matches reports whether any word of m shares a bit with filter.
func (m ClassMask) Matches(filter ClassMask) bool {
	for i := range m {
		if m[i]&filter[i] != 0 {
			return true
		}
	}
	return false
}

// CastTime is the base cast time in milliseconds.
type CastTime struct {
	Duration int64 `json:"duration"`
}

// Channel describes a channeled ability.
type Channel struct {
	// Duration in milliseconds; -1 when the duration row is missing.
	Duration int64 `json:"duration"`

	Hasted          bool             `json:"hasted"`
	BuffIsLogged    bool             `json:"buffIsLogged"`
	TriggeredSpells []TriggeredSpell `json:"triggeredSpells"`
}

// TriggeredSpell is an entity fired periodically while channeling.
type TriggeredSpell struct {
	Spell  int64 `json:"spell"`
	Period int64 `json:"period"`
	Hasted bool  `json:"hasted"`
}

// GCD is the global cooldown an ability triggers.
type GCD struct {
	Duration float64 `json:"duration"`
	Hasted   bool    `json:"hasted"`
}

// Charges is the maximum number of charges.
type Charges struct {
	Max float64 `json:"max"`
}

// Cooldown is a recharge time in milliseconds.
type Cooldown struct {
	Duration float64 `json:"duration"`
	Hasted   bool    `json:"hasted"`
}
