package enrich

import (
	"fmt"
	"slices"

	"github.com/roach88/grimoire/internal/entity"
)

// TableRef names a reference table and the column it is indexed by.
type TableRef struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

func (r TableRef) String() string {
	return r.Name + "/" + r.Key
}

// ComputeFunc derives fields for one entity.
//
// It must not mutate e or any other entity; the engine merges the returned
// fields. A nil or empty result is valid and leaves the entity unchanged.
type ComputeFunc func(in *Input, e *entity.Entity) (entity.Fields, error)

// Enricher is one dependency-ordered enrichment step.
//
// Enrichers are identified by Name. Two distinct values with the same Name
// are treated as the same step.
type Enricher struct {
	// Name is unique within a run.
	Name string

	// Dependencies maps a local role name to the enricher it refers to.
	// Every dependency runs, for all entities, before this enricher.
	Dependencies map[string]*Enricher

	// Tables are preloaded before any enricher runs.
	Tables []TableRef

	// Requires lists entity fields Compute reads. Each must be intrinsic or
	// provided by a transitive dependency.
	Requires []string

	// Provides lists every field Compute may return.
	Provides []string

	Compute ComputeFunc
}

// Roles returns the dependency role names in sorted order.
func (e *Enricher) Roles() []string {
	roles := make([]string, 0, len(e.Dependencies))
	for role := range e.Dependencies {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	return roles
}

// DeclaresTable reports whether e lists the (name, key) table.
func (e *Enricher) DeclaresTable(name, key string) bool {
	return slices.Contains(e.Tables, TableRef{Name: name, Key: key})
}

// ProvidesField reports whether e lists field in Provides.
func (e *Enricher) ProvidesField(field string) bool {
	return slices.Contains(e.Provides, field)
}

// Validate checks the descriptor is usable on its own. Graph-level checks
// (cycles, field contracts) happen when a plan is built.
func (e *Enricher) Validate() error {
	if e == nil {
		return &Error{Code: ErrCodeInvalidEnricher, Message: "nil enricher"}
	}
	if e.Name == "" {
		return &Error{Code: ErrCodeInvalidEnricher, Message: "enricher has no name"}
	}
	if e.Compute == nil {
		return &Error{Code: ErrCodeInvalidEnricher, Message: "no compute function", Enricher: e.Name}
	}
	for _, role := range e.Roles() {
		if e.Dependencies[role] == nil {
			return &Error{
				Code:     ErrCodeInvalidEnricher,
				Message:  fmt.Sprintf("dependency %q is nil", role),
				Enricher: e.Name,
			}
		}
	}
	for _, t := range e.Tables {
		if t.Name == "" || t.Key == "" {
			return &Error{
				Code:     ErrCodeInvalidEnricher,
				Message:  fmt.Sprintf("table reference %q is incomplete", t),
				Enricher: e.Name,
			}
		}
	}
	return nil
}
