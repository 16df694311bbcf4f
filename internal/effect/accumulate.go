package effect

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/grimoire/internal/entity"
)

// CombineFunc folds one effect into an accumulated value. acc is nil when
// nothing has been accumulated yet. Returning nil means "no value".
type CombineFunc[T any] func(acc *T, e Effect) *T

// tagged is an effect with the entities that must be known for it to apply.
type tagged struct {
	requires []int64
	effect   Effect
}

// Accumulate partitions the effects on target into a baseline value and
// conditional modifiers.
//
// Baseline effects (every required entity is a passive Baseline entity)
// fold through combine starting from baseline. Conditional effects are
// grouped by their exact requirement list, in first appearance order, and
// each group folds from nil; groups that fold to nil are dropped.
//
// When the baseline fold yields nil the result has NoBase set and carries
// only the surviving modifiers. Accumulate returns nil when the baseline
// fold yields nil and no modifier survives.
func Accumulate[T any](entities *entity.Index, target *entity.Entity, baseline T, combine CombineFunc[T]) *Result[T] {
	expanded := expand(Effects.Value(target))

	base := &baseline
	var (
		groups   = make(map[string][]Effect)
		requires = make(map[string][]int64)
		keys     []string
	)
	for _, te := range expanded {
		if allKnown(entities, te.requires) {
			base = combine(base, te.effect)
			continue
		}
		k := requirementKey(te.requires)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
			requires[k] = te.requires
		}
		groups[k] = append(groups[k], te.effect)
	}

	result := &Result[T]{}
	if base != nil {
		result.Base = *base
	} else {
		result.NoBase = true
	}
	for _, k := range keys {
		var acc *T
		for _, e := range groups[k] {
			acc = combine(acc, e)
		}
		if acc == nil {
			continue
		}
		result.Modifiers = append(result.Modifiers, Modifier[T]{
			Delta:            *acc,
			RequiredEntities: requires[k],
		})
	}
	if result.NoBase && len(result.Modifiers) == 0 {
		return nil
	}
	return result
}

// expand turns each effect into requirement-tagged effects: the effect
// itself requiring its source, then one synthetic effect per point
// modifier requiring both the source and the modifying entity. Point
// modifiers are expanded in ascending id order and only one level deep.
func expand(effects []Effect) []tagged {
	out := make([]tagged, 0, len(effects))
	for _, e := range effects {
		out = append(out, tagged{requires: []int64{e.SourceID}, effect: e})

		for _, other := range slices.Sorted(maps.Keys(e.PointModifiers)) {
			synthetic := e
			synthetic.PointModifiers = nil
			synthetic.BasePoints = e.PointModifiers[other]
			out = append(out, tagged{requires: []int64{e.SourceID, other}, effect: synthetic})
		}
	}
	return out
}

// KnownUnconditionally reports whether id is a Baseline entity flagged
// passive, i.e. always active for the player.
func KnownUnconditionally(entities *entity.Index, id int64) bool {
	if entities == nil {
		return false
	}
	e, ok := entities.Get(id)
	if !ok || e.Kind() != entity.KindBaseline {
		return false
	}
	return entity.Passive.Value(e)
}

func allKnown(entities *entity.Index, ids []int64) bool {
	for _, id := range ids {
		if !KnownUnconditionally(entities, id) {
			return false
		}
	}
	return true
}

func requirementKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
