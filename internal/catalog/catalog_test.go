package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grimoire/internal/entity"
)

func compileString(t *testing.T, src string, mode Mode) (*Catalog, []error) {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("catalog.cue"))
	return Compile(v, mode)
}

func TestCompile_AllVariants(t *testing.T) {
	cat, errs := compileString(t, `
		catalog: {
			name:      "fire"
			enrichers: ["gcd", "cooldown"]
		}
		entity: fireball:   {id: 133, type: "baseline"}
		entity: pyroblast:  {id: 11366, type: "learned", taughtBy: 133}
		entity: combustion: {id: 190319, type: "talent", requiresTalentEntry: [1, 2], visibleSpellId: 5, granted: true}
		entity: hotStreak:  {id: 48108, type: "temporary", grantedBy: 195283, overrides: 11366}
		entity: ignite:     {id: 12846, type: "legacy-talent", row: 3, column: 1}
	`, CollectAll)
	require.Empty(t, errs)

	assert.Equal(t, "fire", cat.Name)
	assert.Equal(t, []string{"gcd", "cooldown"}, cat.Enrichers)
	require.Len(t, cat.Entities, 5)

	ids := make([]int64, len(cat.Entities))
	for i, e := range cat.Entities {
		ids[i] = e.ID
	}
	assert.Equal(t, []int64{133, 11366, 190319, 48108, 12846}, ids, "declaration order")

	assert.Equal(t, entity.Baseline{}, cat.Entities[0].Variant)
	assert.Equal(t, entity.Learned{TaughtBy: 133}, cat.Entities[1].Variant)
	assert.Equal(t, entity.Talent{RequiresTalentEntry: []int64{1, 2}, VisibleSpellID: 5, Granted: true}, cat.Entities[2].Variant)
	assert.Equal(t, entity.Temporary{GrantedBy: 195283}, cat.Entities[3].Variant)
	assert.Equal(t, entity.LegacyTalent{Row: 3, Column: 1}, cat.Entities[4].Variant)

	assert.Equal(t, int64(11366), entity.Overrides.Value(cat.Entities[3]))
	assert.Equal(t, "hotStreak", cat.Handles[48108])
}

func TestCompile_NoHeader(t *testing.T) {
	cat, errs := compileString(t, `entity: a: {id: 1, type: "baseline"}`, FailFast)
	require.Empty(t, errs)
	assert.Empty(t, cat.Name)
	assert.Nil(t, cat.Enrichers)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"missing id", `entity: a: {type: "baseline"}`, ErrCodeEntityID},
		{"non-positive id", `entity: a: {id: 0, type: "baseline"}`, ErrCodeEntityID},
		{"string id", `entity: a: {id: "x", type: "baseline"}`, ErrCodeEntityID},
		{"missing type", `entity: a: {id: 1}`, ErrCodeEntityType},
		{"unknown type", `entity: a: {id: 1, type: "racial"}`, ErrCodeEntityType},
		{"learned without taughtBy", `entity: a: {id: 1, type: "learned"}`, ErrCodeEntityVariant},
		{"temporary without grantedBy", `entity: a: {id: 1, type: "temporary"}`, ErrCodeEntityVariant},
		{"legacy talent without column", `entity: a: {id: 1, type: "legacy-talent", row: 1}`, ErrCodeEntityVariant},
		{"bad enricher list", `catalog: enrichers: "gcd"
			entity: a: {id: 1, type: "baseline"}`, ErrCodeEnrichers},
		{"no entities", `catalog: name: "empty"`, ErrCodeNoEntities},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := compileString(t, tt.src, FailFast)
			require.Len(t, errs, 1)
			var le *LoadError
			require.True(t, errors.As(errs[0], &le))
			assert.Equal(t, tt.code, le.Code, le.Error())
		})
	}
}

func TestCompile_ErrorPosition(t *testing.T) {
	_, errs := compileString(t, "entity: a: {id: 1, type: \"baseline\"}\nentity: b: {id: 2, type: \"racial\"}\n", FailFast)
	require.Len(t, errs, 1)

	var le *LoadError
	require.True(t, errors.As(errs[0], &le))
	require.True(t, le.Pos.IsValid())
	assert.Equal(t, 2, le.Pos.Line())
	assert.Contains(t, le.Error(), "catalog.cue:2:")
}

func TestCompile_CollectAll(t *testing.T) {
	src := `
		entity: a: {id: 1, type: "learned"}
		entity: b: {id: 2, type: "baseline"}
		entity: c: {type: "baseline"}
	`
	cat, errs := compileString(t, src, CollectAll)
	assert.Len(t, errs, 2)
	require.Len(t, cat.Entities, 1)
	assert.Equal(t, int64(2), cat.Entities[0].ID)

	_, errs = compileString(t, src, FailFast)
	assert.Len(t, errs, 1)
}

func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoad_Directory(t *testing.T) {
	dir := writeCatalog(t, map[string]string{
		"header.cue": "package mage\n\ncatalog: name: \"fire\"\n",
		"spells.cue": "package mage\n\nentity: fireball: {id: 133, type: \"baseline\"}\nentity: scorch: {id: 2948, type: \"baseline\"}\n",
	})

	cat, errs := Load(dir, FailFast)
	require.Empty(t, errs)
	assert.Equal(t, "fire", cat.Name)
	assert.Len(t, cat.Entities, 2)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, errs := Load(filepath.Join(t.TempDir(), "missing"), FailFast)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), ErrCodeNotFound)
	})

	t.Run("not a directory", func(t *testing.T) {
		dir := writeCatalog(t, map[string]string{"x.cue": "package x\n"})
		_, errs := Load(filepath.Join(dir, "x.cue"), FailFast)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), ErrCodeNotFound)
	})

	t.Run("no files", func(t *testing.T) {
		_, errs := Load(t.TempDir(), FailFast)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), ErrCodeNoFiles)
	})

	t.Run("conflicting values", func(t *testing.T) {
		dir := writeCatalog(t, map[string]string{
			"a.cue": "package x\n\nentity: a: {id: 1, type: \"baseline\"}\n",
			"b.cue": "package x\n\nentity: a: {id: 2}\n",
		})
		_, errs := Load(dir, FailFast)
		require.Len(t, errs, 1)
		var le *LoadError
		require.True(t, errors.As(errs[0], &le))
		assert.Equal(t, ErrCodeBuildFailed, le.Code)
	})
}
