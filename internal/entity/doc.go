// Package entity defines the ability records that enrichment operates on.
//
// An Entity has a fixed identity (ID and Variant) and an open set of enriched
// fields. Enrichers never touch the map directly: they read fields through
// typed keys (Key[T]) and return new fields as a Fields value which the engine
// merges in place.
//
// Fields are additive. Nothing in this package removes a field once set.
package entity
