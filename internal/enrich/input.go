package enrich

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/grimoire/internal/dbc"
	"github.com/roach88/grimoire/internal/entity"
)

// TableReader serves preloaded tables. *dbc.Store implements it.
type TableReader interface {
	Table(name, key string) (*dbc.Table, error)
}

// Input is what the engine hands to Compute.
//
// One Input is created per enricher per run and shared by every Compute
// call of that enricher.
type Input struct {
	// Entities is the run's entity index. Treat it as read-only.
	Entities *entity.Index

	// Logger is scoped to the enricher.
	Logger *slog.Logger

	enricher *Enricher
	tables   TableReader
	cache    *Cache
}

// NewInput creates the Input for one enricher.
func NewInput(e *Enricher, tables TableReader, entities *entity.Index, cache *Cache, logger *slog.Logger) *Input {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Input{
		Entities: entities,
		Logger:   logger.With("enricher", e.Name),
		enricher: e,
		tables:   tables,
		cache:    cache,
	}
}

// Enricher returns the enricher this input belongs to.
func (in *Input) Enricher() *Enricher {
	return in.enricher
}

// Table returns a preloaded table the enricher declared.
func (in *Input) Table(name, key string) (*dbc.Table, error) {
	if !in.enricher.DeclaresTable(name, key) {
		return nil, &Error{
			Code:     ErrCodeTableNotDeclared,
			Message:  fmt.Sprintf("table %s/%s is not declared", name, key),
			Enricher: in.enricher.Name,
		}
	}
	return in.tables.Table(name, key)
}

// Cache holds values memoized during one run, keyed by enricher and key.
type Cache struct {
	mu     sync.Mutex
	values map[cacheKey]any
}

type cacheKey struct {
	enricher string
	key      string
}

// NewCache creates an empty run cache.
func NewCache() *Cache {
	return &Cache{values: make(map[cacheKey]any)}
}

// Len returns the number of memoized values.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// Memo returns the value memoized under key for the input's enricher,
// calling build on first use. Errors are not memoized.
func Memo[T any](in *Input, key string, build func() (T, error)) (T, error) {
	ck := cacheKey{enricher: in.enricher.Name, key: key}

	in.cache.mu.Lock()
	if v, ok := in.cache.values[ck]; ok {
		in.cache.mu.Unlock()
		if t, ok := v.(T); ok {
			return t, nil
		}
		var zero T
		return zero, fmt.Errorf("memo %s/%s: cached %T is not %T", ck.enricher, key, v, zero)
	}
	in.cache.mu.Unlock()

	v, err := build()
	if err != nil {
		var zero T
		return zero, err
	}

	in.cache.mu.Lock()
	in.cache.values[ck] = v
	in.cache.mu.Unlock()
	return v, nil
}
