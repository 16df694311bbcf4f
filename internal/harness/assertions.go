package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/grimoire/internal/canon"
	"github.com/roach88/grimoire/internal/effect"
	"github.com/roach88/grimoire/internal/enrichers"
	"github.com/roach88/grimoire/internal/entity"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// applier resolves a modifier-carrying field against a set of known ids.
type applier func(e *entity.Entity, isKnown func(int64) bool) (any, bool)

var appliers = map[string]applier{
	enrichers.GCDKey.Name():      applyKey(enrichers.GCDKey),
	enrichers.ChargesKey.Name():  applyKey(enrichers.ChargesKey),
	enrichers.CooldownKey.Name(): applyKey(enrichers.CooldownKey),
}

func applyKey[T any](k entity.Key[*effect.Result[T]]) applier {
	return func(e *entity.Entity, isKnown func(int64) bool) (any, bool) {
		r, ok := k.Get(e)
		if !ok || r == nil {
			return nil, false
		}
		return effect.ApplyModifiers(r, isKnown), true
	}
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertFieldEquals:
		e, err := r.entity(a.Entity)
		if err != nil {
			return err
		}
		got, ok := e.Field(a.Field)
		if !ok {
			return &AssertionError{Type: a.Type, Expected: describe(a.Expect), Actual: fmt.Sprintf("no %s on entity %d", a.Field, a.Entity)}
		}
		return match(a.Type, a.Expect, got)

	case AssertFieldAbsent:
		e, err := r.entity(a.Entity)
		if err != nil {
			return err
		}
		if got, ok := e.Field(a.Field); ok {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("no %s on entity %d", a.Field, a.Entity), Actual: describe(got)}
		}
		return nil

	case AssertApplied:
		e, err := r.entity(a.Entity)
		if err != nil {
			return err
		}
		apply, ok := appliers[a.Field]
		if !ok {
			return fmt.Errorf("field %q has no modifiers to apply", a.Field)
		}
		got, ok := apply(e, func(id int64) bool { return slices.Contains(a.Known, id) })
		if !ok {
			return &AssertionError{Type: a.Type, Expected: describe(a.Expect), Actual: fmt.Sprintf("no %s on entity %d", a.Field, a.Entity)}
		}
		return match(a.Type, a.Expect, got)

	case AssertPlanOrder:
		last := -1
		for _, name := range a.Enrichers {
			pos := slices.Index(r.Plan, name)
			if pos < 0 {
				return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%s in plan", name), Actual: fmt.Sprint(r.Plan)}
			}
			if pos < last {
				return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Enrichers), Actual: fmt.Sprint(r.Plan)}
			}
			last = pos
		}
		return nil

	case AssertTableLoads:
		ref, err := parseTableRef(a.Table)
		if err != nil {
			return err
		}
		if got := r.Loads(ref); got != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d loads of %s", a.Count, a.Table), Actual: fmt.Sprint(got)}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (r *Result) entity(id int64) (*entity.Entity, error) {
	if r.index == nil {
		return nil, fmt.Errorf("no entities")
	}
	e, ok := r.index.Get(id)
	if !ok {
		return nil, fmt.Errorf("entity %d not in scenario", id)
	}
	return e, nil
}

// match compares want and got through their JSON forms. Objects in want
// match as subsets; everything else must be equal.
func match(typ string, want, got any) error {
	w, err := normalize(want)
	if err != nil {
		return fmt.Errorf("normalize expected: %w", err)
	}
	g, err := normalize(got)
	if err != nil {
		return fmt.Errorf("normalize actual: %w", err)
	}
	if !subset(w, g) {
		return &AssertionError{Type: typ, Expected: describe(want), Actual: describe(got)}
	}
	return nil
}

// normalize round-trips v through JSON so YAML values and Go values
// compare alike: numbers become float64, structs become maps.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func subset(want, got any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !subset(wv, gv) {
				return false
			}
		}
		return true
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !subset(w[i], g[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(want, got)
	}
}

func describe(v any) string {
	data, err := canon.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
