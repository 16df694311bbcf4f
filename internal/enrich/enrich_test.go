package enrich

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grimoire/internal/dbc"
	"github.com/roach88/grimoire/internal/entity"
)

func noop(*Input, *entity.Entity) (entity.Fields, error) { return nil, nil }

type memSource map[string]string

func (m memSource) Locator(table string) string { return table }

func (m memSource) Fetch(_ context.Context, table string) ([]byte, error) {
	return []byte(m[table]), nil
}

func TestEnricher_Validate(t *testing.T) {
	dep := &Enricher{Name: "dep", Compute: noop}

	tests := []struct {
		name    string
		e       *Enricher
		wantErr string
	}{
		{"valid", &Enricher{Name: "a", Compute: noop, Dependencies: map[string]*Enricher{"d": dep}}, ""},
		{"nil", nil, "nil enricher"},
		{"no name", &Enricher{Compute: noop}, "no name"},
		{"no compute", &Enricher{Name: "a"}, "no compute"},
		{"nil dependency", &Enricher{Name: "a", Compute: noop, Dependencies: map[string]*Enricher{"d": nil}}, `dependency "d" is nil`},
		{"bad table", &Enricher{Name: "a", Compute: noop, Tables: []TableRef{{Name: "SpellMisc"}}}, "incomplete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.e.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, HasCode(err, ErrCodeInvalidEnricher))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnricher_Roles(t *testing.T) {
	e := &Enricher{Dependencies: map[string]*Enricher{"z": {}, "a": {}, "m": {}}}
	assert.Equal(t, []string{"a", "m", "z"}, e.Roles())
}

func TestError_Format(t *testing.T) {
	cause := errors.New("boom")
	err := NewComputeError("gcd", 61304, cause)

	assert.Equal(t, "COMPUTE_FAILED: compute failed (enricher=gcd, entity=61304): boom", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, HasCode(fmt.Errorf("run: %w", err), ErrCodeComputeFailed))
	assert.False(t, IsCycleError(err))
}

func TestNewCycleError(t *testing.T) {
	err := NewCycleError([]string{"a", "b", "a"})

	assert.True(t, IsCycleError(fmt.Errorf("plan: %w", err)))
	assert.Equal(t, "a", err.Enricher)
	assert.Equal(t, []string{"a", "b", "a"}, err.Path)
	assert.Contains(t, err.Error(), "a -> b -> a")
}

func TestInput_TableScopedToDeclared(t *testing.T) {
	store := dbc.NewStore(memSource{"SpellMisc": "ID,SpellID\n1,100\n"}, nil)
	_, err := store.LoadTable(context.Background(), "SpellMisc", "SpellID")
	require.NoError(t, err)

	declared := &Enricher{Name: "passive", Compute: noop, Tables: []TableRef{{Name: "SpellMisc", Key: "SpellID"}}}
	undeclared := &Enricher{Name: "other", Compute: noop}

	in := NewInput(declared, store, nil, nil, nil)
	tbl, err := in.Table("SpellMisc", "SpellID")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	in = NewInput(undeclared, store, nil, nil, nil)
	_, err = in.Table("SpellMisc", "SpellID")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeTableNotDeclared))
}

func TestInput_DeclaredButNotLoaded(t *testing.T) {
	store := dbc.NewStore(memSource{}, nil)
	e := &Enricher{Name: "passive", Compute: noop, Tables: []TableRef{{Name: "SpellMisc", Key: "SpellID"}}}

	_, err := NewInput(e, store, nil, nil, nil).Table("SpellMisc", "SpellID")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dbc.ErrTableNotLoaded))
}

func TestMemo_BuildsOncePerEnricherAndKey(t *testing.T) {
	cache := NewCache()
	a := NewInput(&Enricher{Name: "a", Compute: noop}, nil, nil, cache, nil)
	b := NewInput(&Enricher{Name: "b", Compute: noop}, nil, nil, cache, nil)

	builds := 0
	build := func() (int, error) {
		builds++
		return builds, nil
	}

	v1, err := Memo(a, "index", build)
	require.NoError(t, err)
	v2, err := Memo(a, "index", build)
	require.NoError(t, err)
	assert.Equal(t, 1, v1)
	assert.Equal(t, 1, v2)

	v3, err := Memo(b, "index", build)
	require.NoError(t, err)
	assert.Equal(t, 2, v3)
	assert.Equal(t, 2, cache.Len())
}

func TestMemo_ErrorsNotCached(t *testing.T) {
	in := NewInput(&Enricher{Name: "a", Compute: noop}, nil, nil, nil, nil)

	_, err := Memo(in, "k", func() (string, error) { return "", errors.New("nope") })
	require.Error(t, err)

	v, err := Memo(in, "k", func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestMemo_TypeMismatch(t *testing.T) {
	in := NewInput(&Enricher{Name: "a", Compute: noop}, nil, nil, nil, nil)

	_, err := Memo(in, "k", func() (int, error) { return 1, nil })
	require.NoError(t, err)

	_, err = Memo(in, "k", func() (string, error) { return "x", nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not")
}

func TestHasCode_Nested(t *testing.T) {
	inner := &Error{Code: ErrCodeTableNotDeclared, Message: "table SpellMisc/SpellID is not declared"}
	outer := NewComputeError("gcd", 1, inner)

	assert.True(t, HasCode(outer, ErrCodeComputeFailed))
	assert.True(t, HasCode(outer, ErrCodeTableNotDeclared))
	assert.False(t, HasCode(outer, ErrCodeCycleDetected))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeComputeFailed))
	assert.False(t, HasCode(nil, ErrCodeComputeFailed))
}
