package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
)

func noop(*enrich.Input, *entity.Entity) (entity.Fields, error) { return nil, nil }

func node(name string, deps map[string]*enrich.Enricher, tables ...enrich.TableRef) *enrich.Enricher {
	return &enrich.Enricher{Name: name, Dependencies: deps, Tables: tables, Compute: noop}
}

func assertTopological(t *testing.T, p *Plan) {
	t.Helper()
	pos := make(map[string]int, len(p.Order))
	for i, e := range p.Order {
		_, dup := pos[e.Name]
		require.False(t, dup, "enricher %s appears twice", e.Name)
		pos[e.Name] = i
	}
	for _, e := range p.Order {
		for role, dep := range e.Dependencies {
			depPos, ok := pos[dep.Name]
			require.True(t, ok, "dependency %s (%s of %s) missing from plan", dep.Name, role, e.Name)
			assert.Less(t, depPos, pos[e.Name], "%s must run before %s", dep.Name, e.Name)
		}
	}
}

func TestBuild_Diamond(t *testing.T) {
	passive := node("passive", nil, enrich.TableRef{Name: "SpellMisc", Key: "SpellID"})
	label := node("label", nil, enrich.TableRef{Name: "SpellLabel", Key: "SpellID"})
	effects := node("effects", map[string]*enrich.Enricher{"label": label},
		enrich.TableRef{Name: "SpellEffect", Key: "SpellID"})
	gcd := node("gcd", map[string]*enrich.Enricher{"effects": effects, "passive": passive},
		enrich.TableRef{Name: "SpellMisc", Key: "SpellID"})
	cooldown := node("cooldown", map[string]*enrich.Enricher{"effects": effects, "passive": passive})

	p, err := Build(map[string]*enrich.Enricher{"gcd": gcd, "cooldown": cooldown})
	require.NoError(t, err)

	assert.Len(t, p.Order, 5)
	assertTopological(t, p)

	assert.ElementsMatch(t, []enrich.TableRef{
		{Name: "SpellMisc", Key: "SpellID"},
		{Name: "SpellLabel", Key: "SpellID"},
		{Name: "SpellEffect", Key: "SpellID"},
	}, p.Tables)
}

func TestBuild_Deterministic(t *testing.T) {
	a := node("a", nil)
	b := node("b", map[string]*enrich.Enricher{"a": a})
	c := node("c", map[string]*enrich.Enricher{"a": a})
	d := node("d", map[string]*enrich.Enricher{"b": b, "c": c})
	requested := map[string]*enrich.Enricher{"d": d, "c": c, "b": b}

	first, err := Build(requested)
	require.NoError(t, err)
	for range 20 {
		again, err := Build(requested)
		require.NoError(t, err)
		assert.Equal(t, first.Names(), again.Names())
	}
	assertTopological(t, first)
}

func TestBuild_Empty(t *testing.T) {
	p, err := Build(nil)
	require.NoError(t, err)
	assert.Empty(t, p.Order)
	assert.Empty(t, p.Tables)
}

func TestBuild_SharedDependencyPlannedOnce(t *testing.T) {
	a := node("a", nil)
	b := node("b", map[string]*enrich.Enricher{"first": a})
	c := node("c", map[string]*enrich.Enricher{"second": a})

	p, err := Build(map[string]*enrich.Enricher{"b": b, "c": c})
	require.NoError(t, err)
	assert.Len(t, p.Order, 3)
	assert.Equal(t, "a", p.Order[0].Name)
}

func TestBuild_NameConflict(t *testing.T) {
	a1 := node("a", nil)
	a2 := node("a", nil)
	b := node("b", map[string]*enrich.Enricher{"first": a1})
	c := node("c", map[string]*enrich.Enricher{"second": a2})

	_, err := Build(map[string]*enrich.Enricher{"b": b, "c": c})
	require.Error(t, err)
	assert.True(t, enrich.HasCode(err, enrich.ErrCodeInvalidEnricher))

	var ee *enrich.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "a", ee.Enricher)
}

func TestBuild_TwoCycle(t *testing.T) {
	a := node("a", nil)
	b := node("b", map[string]*enrich.Enricher{"a": a})
	a.Dependencies = map[string]*enrich.Enricher{"b": b}

	_, err := Build(map[string]*enrich.Enricher{"a": a})
	require.Error(t, err)
	assert.True(t, enrich.IsCycleError(err))

	var ee *enrich.Error
	require.ErrorAs(t, err, &ee)
	assert.Len(t, ee.Path, 3)
	assert.Equal(t, ee.Path[0], ee.Path[2])
}

func TestBuild_SelfCycle(t *testing.T) {
	a := node("a", nil)
	a.Dependencies = map[string]*enrich.Enricher{"self": a}

	_, err := Build(map[string]*enrich.Enricher{"a": a})
	require.Error(t, err)
	assert.True(t, enrich.IsCycleError(err))
}

func TestBuild_InvalidDescriptor(t *testing.T) {
	a := &enrich.Enricher{Name: "a"}
	_, err := Build(map[string]*enrich.Enricher{"a": a})
	require.Error(t, err)
	assert.True(t, enrich.HasCode(err, enrich.ErrCodeInvalidEnricher))
}

func TestBuild_FieldContracts(t *testing.T) {
	passive := node("passive", nil)
	passive.Provides = []string{"passive"}

	t.Run("provided by dependency", func(t *testing.T) {
		gcd := node("gcd", map[string]*enrich.Enricher{"passive": passive})
		gcd.Requires = []string{"passive", "id", "type"}
		_, err := Build(map[string]*enrich.Enricher{"gcd": gcd})
		assert.NoError(t, err)
	})

	t.Run("provided transitively", func(t *testing.T) {
		mid := node("mid", map[string]*enrich.Enricher{"passive": passive})
		top := node("top", map[string]*enrich.Enricher{"mid": mid})
		top.Requires = []string{"passive"}
		_, err := Build(map[string]*enrich.Enricher{"top": top})
		assert.NoError(t, err)
	})

	t.Run("intrinsic overrides", func(t *testing.T) {
		e := node("e", nil)
		e.Requires = []string{"overrides"}
		_, err := Build(map[string]*enrich.Enricher{"e": e})
		assert.NoError(t, err)
	})

	t.Run("unsatisfied", func(t *testing.T) {
		sibling := node("sibling", nil)
		sibling.Requires = []string{"passive"}
		// passive is in the plan but not a dependency of sibling.
		_, err := Build(map[string]*enrich.Enricher{"passive": passive, "sibling": sibling})
		require.Error(t, err)
		assert.True(t, enrich.HasCode(err, enrich.ErrCodeUnsatisfiedRequirement))
		assert.Contains(t, err.Error(), `"passive"`)
	})
}

func TestBuild_TablesDeduplicatedInPlanOrder(t *testing.T) {
	misc := enrich.TableRef{Name: "SpellMisc", Key: "SpellID"}
	effect := enrich.TableRef{Name: "SpellEffect", Key: "SpellID"}
	effectByID := enrich.TableRef{Name: "SpellEffect", Key: "ID"}

	a := node("a", nil, misc, effect)
	b := node("b", map[string]*enrich.Enricher{"a": a}, effect, effectByID, misc)

	p, err := Build(map[string]*enrich.Enricher{"b": b})
	require.NoError(t, err)
	assert.Equal(t, []enrich.TableRef{misc, effect, effectByID}, p.Tables)
}

func TestPlan_HashAndString(t *testing.T) {
	a := node("a", nil, enrich.TableRef{Name: "T", Key: "ID"})
	b := node("b", map[string]*enrich.Enricher{"a": a})

	p1, err := Build(map[string]*enrich.Enricher{"b": b})
	require.NoError(t, err)
	p2, err := Build(map[string]*enrich.Enricher{"b": b})
	require.NoError(t, err)
	p3, err := Build(map[string]*enrich.Enricher{"a": a})
	require.NoError(t, err)

	h1, err := p1.Hash()
	require.NoError(t, err)
	h2, err := p2.Hash()
	require.NoError(t, err)
	h3, err := p3.Hash()
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Equal(t, "a -> b", p1.String())
}
