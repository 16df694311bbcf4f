// Package engine runs enrichment plans over a collection of entities.
//
// A run has three phases:
//
//  1. Plan: resolve the dependency closure of the requested enrichers into
//     a total order (package plan). Plan errors abort before any IO.
//  2. Preload: load every distinct (table, key) pair the plan declares,
//     concurrently. All loads finish, or the run fails, before any
//     enricher computes.
//  3. Execute: run each enricher over every entity, one enricher at a time
//     in plan order, merging returned fields into the entity in place.
//
// Compute calls never run concurrently. An enricher can therefore rely on
// its dependencies' fields being present on every entity, not just the one
// it is computing.
//
// Entities are mutated, never replaced: the slice passed to Run is the
// slice returned, with the same pointers.
package engine
