package enrichers

import (
	"log/slog"

	"github.com/roach88/grimoire/internal/effect"
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
)

const (
	attr1Channeled     = 0x4
	attr1ChanneledSelf = 0x40
	attr5PeriodHasted  = 0x2000
	attr6BuffNotLogged = 0x400
	attr8DurationHaste = 0x20000
)

// channelEnricher describes channeled abilities. A channel either fires
// another entity periodically, applies a visible aura for its duration, or
// does something server-side that the tables do not describe.
var channelEnricher = &enrich.Enricher{
	Name:         "channel",
	Dependencies: deps(effectsEnricher),
	Tables:       []enrich.TableRef{spellMiscBySpell, spellDurationByID},
	Requires:     []string{effect.Effects.Name()},
	Provides:     []string{ChannelKey.Name()},
	Compute:      computeChannel,
}

func computeChannel(in *enrich.Input, e *entity.Entity) (entity.Fields, error) {
	misc, err := in.Table(tableSpellMisc, keySpellID)
	if err != nil {
		return nil, err
	}
	durations, err := in.Table(tableSpellDuration, keyID)
	if err != nil {
		return nil, err
	}

	row, ok := misc.First(e.ID)
	if !ok {
		return nil, nil
	}
	attr1 := row.Int("Attributes_1")
	if attr1&(attr1Channeled|attr1ChanneledSelf) == 0 {
		return nil, nil
	}

	ch := Channel{
		Duration:        -1,
		Hasted:          row.Int("Attributes_8")&attr8DurationHaste != 0,
		BuffIsLogged:    row.Int("Attributes_6")&attr6BuffNotLogged == 0,
		TriggeredSpells: []TriggeredSpell{},
	}
	if d, ok := durations.First(row.Int("DurationIndex")); ok {
		ch.Duration = d.Int("Duration")
	} else {
		in.Logger.Warn("no duration for channeled entity",
			slog.Int64("entity", e.ID),
			slog.Int64("duration_index", row.Int("DurationIndex")))
	}

	// The trigger period and the channel duration are hasted independently.
	periodHasted := row.Int("Attributes_5")&attr5PeriodHasted != 0
	for _, fx := range effect.Effects.Value(e) {
		if fx.Aura != effect.AuraPeriodicTriggerSpell || fx.TriggeredSpell == 0 {
			continue
		}
		ch.TriggeredSpells = append(ch.TriggeredSpells, TriggeredSpell{
			Spell:  fx.TriggeredSpell,
			Period: fx.Period,
			Hasted: periodHasted,
		})
	}

	out := entity.Fields{}
	ChannelKey.Put(out, ch)
	return out, nil
}
