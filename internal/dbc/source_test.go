package dbc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_Locator(t *testing.T) {
	s := NewHTTPSource("", "11.0.2.56421")
	assert.Equal(t, "https://wago.tools/db2/SpellMisc/csv?build=11.0.2.56421", s.Locator("SpellMisc"))

	latest := NewHTTPSource("http://example.test/", "")
	assert.Equal(t, "http://example.test/db2/SpellMisc/csv", latest.Locator("SpellMisc"))
}

func TestHTTPSource_Fetch(t *testing.T) {
	var gotPath, gotBuild string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBuild = r.URL.Query().Get("build")
		if r.URL.Path == "/db2/Missing/csv" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ID,Name_lang\n1,Fireball\n"))
	}))
	defer srv.Close()

	s := NewHTTPSource(srv.URL, "1.2.3", WithHTTPClient(srv.Client()), WithRateLimit(0, 0))

	data, err := s.Fetch(context.Background(), "SpellName")
	require.NoError(t, err)
	assert.Equal(t, "ID,Name_lang\n1,Fireball\n", string(data))
	assert.Equal(t, "/db2/SpellName/csv", gotPath)
	assert.Equal(t, "1.2.3", gotBuild)

	_, err = s.Fetch(context.Background(), "Missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTableNotFound))
}

func TestHTTPSource_CancelledContext(t *testing.T) {
	s := NewHTTPSource("http://127.0.0.1:1", "", WithRateLimit(0.001, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Fetch(ctx, "SpellName")
	require.Error(t, err)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SpellName.csv"), []byte("ID,Name_lang\n"), 0o644))

	s := DirSource{Dir: dir}
	data, err := s.Fetch(context.Background(), "SpellName")
	require.NoError(t, err)
	assert.Equal(t, "ID,Name_lang\n", string(data))

	_, err = s.Fetch(context.Background(), "Missing")
	assert.True(t, errors.Is(err, ErrTableNotFound))
}

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *mapCache) GetTable(_ context.Context, loc string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[loc]
	return d, ok, nil
}

func (c *mapCache) PutTable(_ context.Context, loc string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[loc] = data
	return nil
}

func TestCachedSource(t *testing.T) {
	up := &countingSource{tables: map[string]string{"SpellName": "ID,Name_lang\n1,A\n"}}
	cache := &mapCache{data: map[string][]byte{}}
	s := &CachedSource{Upstream: up, Cache: cache}

	for range 3 {
		data, err := s.Fetch(context.Background(), "SpellName")
		require.NoError(t, err)
		assert.Equal(t, "ID,Name_lang\n1,A\n", string(data))
	}

	assert.Equal(t, int32(1), up.fetches.Load())
	assert.Contains(t, cache.data, "mem://SpellName")
	assert.Equal(t, "mem://SpellName", s.Locator("SpellName"))
}
