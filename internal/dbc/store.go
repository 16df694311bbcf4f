package dbc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrTableNotLoaded is returned by Store.Table for a (table, key) pair that
// was never loaded.
var ErrTableNotLoaded = errors.New("table not loaded")

type tableKey struct {
	name string
	key  string
}

// Store memoizes tables fetched from a Source.
//
// Store is safe for concurrent use. Concurrent loads of the same
// (table, key) pair share one fetch, and a table loaded under several key
// columns is fetched and parsed once.
type Store struct {
	source Source
	logger *slog.Logger

	mu     sync.RWMutex
	raws   map[string]*Raw
	tables map[tableKey]*Table

	rawGroup   singleflight.Group
	tableGroup singleflight.Group
}

// NewStore creates a Store over source. A nil logger uses slog.Default().
func NewStore(source Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source: source,
		logger: logger,
		raws:   make(map[string]*Raw),
		tables: make(map[tableKey]*Table),
	}
}

// LoadTable fetches and indexes a table by key. Repeated calls return the
// same *Table without fetching again.
func (s *Store) LoadTable(ctx context.Context, name, key string) (*Table, error) {
	tk := tableKey{name: name, key: key}
	if t := s.cached(tk); t != nil {
		return t, nil
	}

	v, err, _ := s.tableGroup.Do(name+"\x00"+key, func() (any, error) {
		if t := s.cached(tk); t != nil {
			return t, nil
		}
		raw, err := s.loadRaw(ctx, name)
		if err != nil {
			return nil, err
		}
		t, err := NewTable(raw, key)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.tables[tk] = t
		s.mu.Unlock()

		s.logger.Debug("table indexed", "table", name, "key", key, "rows", t.Len())
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load table %s by %s: %w", name, key, err)
	}

	t, ok := v.(*Table)
	if !ok {
		return nil, fmt.Errorf("load table %s by %s: unexpected %T", name, key, v)
	}
	return t, nil
}

// Table returns a previously loaded table.
func (s *Store) Table(name, key string) (*Table, error) {
	if t := s.cached(tableKey{name: name, key: key}); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("table %s by %s: %w", name, key, ErrTableNotLoaded)
}

// Loaded returns the number of distinct (table, key) pairs loaded.
func (s *Store) Loaded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables)
}

func (s *Store) cached(tk tableKey) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[tk]
}

func (s *Store) loadRaw(ctx context.Context, name string) (*Raw, error) {
	s.mu.RLock()
	raw := s.raws[name]
	s.mu.RUnlock()
	if raw != nil {
		return raw, nil
	}

	v, err, _ := s.rawGroup.Do(name, func() (any, error) {
		s.mu.RLock()
		raw := s.raws[name]
		s.mu.RUnlock()
		if raw != nil {
			return raw, nil
		}

		data, err := s.source.Fetch(ctx, name)
		if err != nil {
			return nil, err
		}
		raw, err = Parse(name, data)
		if err != nil {
			return nil, err
		}
		for _, w := range raw.Warnings {
			s.logger.Warn("table parse warning", "table", name, "row", w.Row, "message", w.Message)
		}

		s.mu.Lock()
		s.raws[name] = raw
		s.mu.Unlock()
		return raw, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Raw), nil
}
