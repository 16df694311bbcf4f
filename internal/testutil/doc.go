// Package testutil provides deterministic collaborators for tests: an
// in-memory table source, a table store that counts loads, and a constant
// run id generator.
package testutil
