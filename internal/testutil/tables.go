package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/grimoire/internal/dbc"
	"github.com/roach88/grimoire/internal/enrich"
)

// MemorySource serves CSV tables from memory and counts fetches.
//
// Thread-safety: safe for concurrent use.
type MemorySource struct {
	mu      sync.Mutex
	tables  map[string]string
	fetches map[string]int
}

// NewMemorySource creates a source over name -> CSV text.
func NewMemorySource(tables map[string]string) *MemorySource {
	s := &MemorySource{
		tables:  make(map[string]string, len(tables)),
		fetches: make(map[string]int),
	}
	for name, data := range tables {
		s.tables[name] = data
	}
	return s
}

// Set adds or replaces a table.
func (s *MemorySource) Set(name, csv string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = csv
}

// Locator returns "mem://<table>".
func (s *MemorySource) Locator(table string) string {
	return "mem://" + table
}

// Fetch returns the table's CSV bytes.
func (s *MemorySource) Fetch(_ context.Context, table string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches[table]++
	data, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("memory source %s: %w", table, dbc.ErrTableNotFound)
	}
	return []byte(data), nil
}

// Fetches returns how many times table was fetched.
func (s *MemorySource) Fetches(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[table]
}

// CountingStore wraps a dbc.Store and counts LoadTable calls per
// (table, key), whether or not they hit the store's memo.
type CountingStore struct {
	*dbc.Store

	mu    sync.Mutex
	loads map[enrich.TableRef]int
	order []enrich.TableRef
}

// NewCountingStore creates a counting store over src.
func NewCountingStore(src dbc.Source) *CountingStore {
	return &CountingStore{
		Store: dbc.NewStore(src, nil),
		loads: make(map[enrich.TableRef]int),
	}
}

// LoadTable counts the call and delegates.
func (s *CountingStore) LoadTable(ctx context.Context, name, key string) (*dbc.Table, error) {
	ref := enrich.TableRef{Name: name, Key: key}
	s.mu.Lock()
	if s.loads[ref] == 0 {
		s.order = append(s.order, ref)
	}
	s.loads[ref]++
	s.mu.Unlock()

	return s.Store.LoadTable(ctx, name, key)
}

// Loads returns the number of LoadTable calls for (name, key).
func (s *CountingStore) Loads(name, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[enrich.TableRef{Name: name, Key: key}]
}

// Requested returns every distinct (table, key) pair requested.
// Order reflects goroutine scheduling and is not stable.
func (s *CountingStore) Requested() []enrich.TableRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]enrich.TableRef, len(s.order))
	copy(out, s.order)
	return out
}

// TotalLoads returns the number of LoadTable calls across all tables.
func (s *CountingStore) TotalLoads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.loads {
		n += c
	}
	return n
}
