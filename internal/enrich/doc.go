// Package enrich defines the contract between enrichment steps and the
// engine that runs them.
//
// An Enricher names the enrichers it depends on, the reference tables it
// reads and the entity fields it reads and writes. The engine uses these
// declarations to order execution, preload tables and police merges:
//
//   - Dependencies are ordered before dependents (see package plan).
//   - Input.Table only serves declared tables.
//   - Compute may only return fields listed in Provides.
//
// Compute runs once per entity per run. Work shared across entities (lookup
// indexes built from a whole table, say) goes through Memo, which is scoped
// to one run and one enricher.
package enrich
