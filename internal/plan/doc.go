// Package plan orders enrichers so every dependency runs before its
// dependents.
//
// Build walks the dependency closure of the requested enrichers, sorts it
// topologically and checks field contracts. It fails on the first cycle it
// meets. Cycles reports every cycle in the graph for diagnostics without
// failing.
//
// Map iteration is never relied on: requested enrichers are visited in key
// order and dependencies in role order, so the same input always yields the
// same plan.
package plan
