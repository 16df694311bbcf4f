package effect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Result is a baseline value plus the modifiers that adjust it when their
// required entities are known.
type Result[T any] struct {
	Base      T
	Modifiers []Modifier[T]

	// NoBase marks a result whose baseline folded to no value. Base is then
	// the zero T and is left out of the JSON form.
	NoBase bool
}

// Modifier is a partial T that applies only when every id in
// RequiredEntities is known. Zero-valued fields of Delta are unset, so a
// modifier cannot set a field to its zero value (false, "", 0).
type Modifier[T any] struct {
	Delta            T
	RequiredEntities []int64
}

// MarshalJSON flattens Base into the top-level object and adds a
// "modifiers" array when there are any.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage)
	if !r.NoBase {
		var err error
		if obj, err = toObject(r.Base, false); err != nil {
			return nil, err
		}
	}
	if len(r.Modifiers) > 0 {
		mods, err := json.Marshal(r.Modifiers)
		if err != nil {
			return nil, err
		}
		obj["modifiers"] = mods
	}
	return json.Marshal(obj)
}

// MarshalJSON flattens the set fields of Delta and adds "requiredEntities".
func (m Modifier[T]) MarshalJSON() ([]byte, error) {
	obj, err := toObject(m.Delta, true)
	if err != nil {
		return nil, err
	}
	ids := m.RequiredEntities
	if ids == nil {
		ids = []int64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	obj["requiredEntities"] = raw
	return json.Marshal(obj)
}

// toObject encodes v as a JSON object. Non-object values are stored under
// "value". With dropZero, fields encoding to a JSON zero value are removed.
func toObject(v any, dropZero bool) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	obj := make(map[string]json.RawMessage)
	if len(data) == 0 || data[0] != '{' {
		obj["value"] = data
	} else if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("flatten %T: %w", v, err)
	}
	if dropZero {
		for k, raw := range obj {
			if isZeroJSON(raw) {
				delete(obj, k)
			}
		}
	}
	return obj, nil
}

func isZeroJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "0", "false", `""`, "null", "[]", "{}":
		return true
	}
	return false
}

// ApplyModifiers resolves r for a concrete set of known entities.
//
// It starts from Base and merges every modifier whose required entities
// are all known: numeric fields are added, other set fields overwrite.
// Unset (zero) fields of a modifier leave the running value alone. A nil
// result, which Accumulate returns when there is nothing to report,
// resolves to the zero T.
func ApplyModifiers[T any](r *Result[T], isKnown func(id int64) bool) T {
	var out T
	if r == nil {
		return out
	}
	out = r.Base
	target := reflect.ValueOf(&out).Elem()

	for _, m := range r.Modifiers {
		if !allSatisfied(m.RequiredEntities, isKnown) {
			continue
		}
		merge(target, reflect.ValueOf(m.Delta))
	}
	return out
}

func allSatisfied(ids []int64, isKnown func(int64) bool) bool {
	for _, id := range ids {
		if !isKnown(id) {
			return false
		}
	}
	return true
}

func merge(dst, src reflect.Value) {
	if dst.Kind() == reflect.Struct {
		for i := range dst.NumField() {
			if !dst.Type().Field(i).IsExported() {
				continue
			}
			mergeValue(dst.Field(i), src.Field(i))
		}
		return
	}
	mergeValue(dst, src)
}

func mergeValue(dst, src reflect.Value) {
	if src.IsZero() {
		return
	}
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		dst.SetInt(dst.Int() + src.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		dst.SetUint(dst.Uint() + src.Uint())
	case reflect.Float32, reflect.Float64:
		dst.SetFloat(dst.Float() + src.Float())
	default:
		dst.Set(src)
	}
}
