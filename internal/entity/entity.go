package entity

import (
	"encoding/json"
	"maps"
	"slices"
)

// Intrinsic field names. They are part of every entity and never appear in
// the enriched field map.
const (
	FieldID   = "id"
	FieldType = "type"
)

// IntrinsicFields are always present on an entity before any enricher runs.
// Overrides is included because catalogs may set it at creation time.
var IntrinsicFields = []string{FieldID, FieldType, Overrides.Name()}

// Well-known keys shared across packages.
var (
	// Overrides is the id of another entity this one supersedes when known.
	Overrides = NewKey[int64]("overrides")

	// Passive reports whether the entity is a passive effect rather than an
	// activated ability.
	Passive = NewKey[bool]("passive")
)

// Fields is a set of enriched values keyed by field name.
type Fields map[string]any

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

// Entity is one enrichable ability record.
//
// Entities are created once before enrichment and mutated in place by each
// enricher in plan order. They are never replaced during a run.
type Entity struct {
	ID      int64
	Variant Variant

	fields Fields
	owners map[string]string // field -> enricher that wrote it
}

// New creates an entity with no enriched fields.
func New(id int64, v Variant) *Entity {
	if v == nil {
		v = Baseline{}
	}
	return &Entity{
		ID:      id,
		Variant: v,
		fields:  make(Fields),
		owners:  make(map[string]string),
	}
}

// Kind is shorthand for e.Variant.Kind().
func (e *Entity) Kind() Kind {
	return e.Variant.Kind()
}

// Field returns the raw value of an enriched field.
func (e *Entity) Field(name string) (any, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Fields returns a copy of the enriched fields.
func (e *Entity) Fields() Fields {
	return maps.Clone(e.fields)
}

// Owner returns the name of the enricher that last wrote a field.
// Fields set at creation time have an empty owner.
func (e *Entity) Owner(name string) string {
	return e.owners[name]
}

// Merge assigns every field in f onto the entity, recording owner as the
// writer. Existing values are overwritten (last write wins). The returned
// slice lists fields that were previously written by a different owner,
// in sorted order.
func (e *Entity) Merge(owner string, f Fields) []string {
	var overwritten []string
	for _, name := range f.Names() {
		if _, exists := e.fields[name]; exists && e.owners[name] != owner {
			overwritten = append(overwritten, name)
		}
		e.fields[name] = f[name]
		e.owners[name] = owner
	}
	return overwritten
}

// MarshalJSON flattens identity, variant attributes and enriched fields into
// one object: {"id":…, "type":…, <variant attrs>, <fields>}.
func (e *Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.fields)+4)
	for k, v := range e.fields {
		out[k] = v
	}
	e.Variant.attrs(out)
	out[FieldID] = e.ID
	out[FieldType] = e.Kind()
	return json.Marshal(out)
}

// Key is a typed accessor for one enriched field.
type Key[T any] struct {
	name string
}

// NewKey declares a typed field key.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the field name.
func (k Key[T]) Name() string {
	return k.name
}

// Get returns the field value. ok is false when the field is absent or holds
// a value of another type.
func (k Key[T]) Get(e *Entity) (T, bool) {
	v, ok := e.fields[k.name].(T)
	return v, ok
}

// Value returns the field value or the zero value of T.
func (k Key[T]) Value(e *Entity) T {
	v, _ := k.Get(e)
	return v
}

// Has reports whether the field is present, regardless of type.
func (k Key[T]) Has(e *Entity) bool {
	_, ok := e.fields[k.name]
	return ok
}

// Set writes the field directly on an entity. Used when building entities;
// enrichers return Fields instead.
func (k Key[T]) Set(e *Entity, v T) {
	e.fields[k.name] = v
	delete(e.owners, k.name)
}

// Put writes the field into an output set.
func (k Key[T]) Put(f Fields, v T) {
	f[k.name] = v
}
