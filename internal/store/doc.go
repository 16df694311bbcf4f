// Package store provides SQLite-backed storage for grimoire.
//
// It holds two things:
//   - Table cache: raw CSV bytes keyed by source locator, so repeated runs
//     do not refetch reference tables. *Store implements dbc.Cache.
//   - Runs: one record per enrichment run plus a snapshot of every
//     enriched entity as canonical JSON.
//
// # Ordering
//
// Runs and snapshot rows are ordered by a seq column assigned at write
// time, never by timestamps. Listing the same database twice gives the
// same order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Snapshot hashes use canon.DomainSnapshot.
package store
