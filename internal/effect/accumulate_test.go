package effect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/grimoire/internal/entity"
)

type value struct {
	Amount float64 `json:"amount"`
	Hasted bool    `json:"hasted,omitempty"`
}

func sumPoints(acc *value, e Effect) *value {
	var next value
	if acc != nil {
		next = *acc
	}
	next.Amount += e.BasePoints
	return &next
}

func passiveBaseline(id int64) *entity.Entity {
	e := entity.New(id, entity.Baseline{})
	entity.Passive.Set(e, true)
	return e
}

func target(id int64, effects ...Effect) *entity.Entity {
	e := entity.New(id, entity.Baseline{})
	Effects.Set(e, effects)
	return e
}

func index(t *testing.T, entities ...*entity.Entity) *entity.Index {
	t.Helper()
	idx, dups := entity.NewIndex(entities)
	require.Empty(t, dups)
	return idx
}

func TestAccumulate_NoEffects(t *testing.T) {
	tgt := target(1)
	r := Accumulate(index(t, tgt), tgt, value{Amount: 1500}, sumPoints)

	require.NotNil(t, r)
	assert.Equal(t, value{Amount: 1500}, r.Base)
	assert.Nil(t, r.Modifiers)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":1500}`, string(data))
}

func TestAccumulate_MissingEffectsField(t *testing.T) {
	tgt := entity.New(1, entity.Baseline{})
	r := Accumulate(index(t, tgt), tgt, value{Amount: 7}, sumPoints)

	require.NotNil(t, r)
	assert.Equal(t, value{Amount: 7}, r.Base)
	assert.Empty(t, r.Modifiers)
}

func TestAccumulate_BaselineAndConditional(t *testing.T) {
	talent := entity.New(20, entity.Talent{})
	tgt := target(1,
		Effect{SourceID: 10, BasePoints: 5},
		Effect{SourceID: 20, BasePoints: 3},
	)
	idx := index(t, tgt, passiveBaseline(10), talent)

	r := Accumulate(idx, tgt, value{Amount: 100}, sumPoints)
	require.NotNil(t, r)
	assert.Equal(t, value{Amount: 105}, r.Base)
	require.Len(t, r.Modifiers, 1)
	assert.Equal(t, value{Amount: 3}, r.Modifiers[0].Delta)
	assert.Equal(t, []int64{20}, r.Modifiers[0].RequiredEntities)

	unknown := ApplyModifiers(r, func(int64) bool { return false })
	assert.Equal(t, 105.0, unknown.Amount)

	known := ApplyModifiers(r, func(id int64) bool { return id == 20 })
	assert.Equal(t, 108.0, known.Amount)

	// ApplyModifiers leaves the result untouched.
	assert.Equal(t, value{Amount: 105}, r.Base)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":105,"modifiers":[{"amount":3,"requiredEntities":[20]}]}`, string(data))
}

func TestAccumulate_PointModifierExpansion(t *testing.T) {
	tgt := target(1, Effect{
		SourceID:       10,
		BasePoints:     5,
		PointModifiers: map[int64]float64{30: 8, 25: 7},
	})
	idx := index(t, tgt, passiveBaseline(10), passiveBaseline(25), entity.New(30, entity.Talent{}))

	r := Accumulate(idx, tgt, value{Amount: 100}, sumPoints)
	require.NotNil(t, r)

	// [10] and [10,25] are both unconditionally known.
	assert.Equal(t, value{Amount: 112}, r.Base)
	require.Len(t, r.Modifiers, 1)
	assert.Equal(t, value{Amount: 8}, r.Modifiers[0].Delta)
	assert.Equal(t, []int64{10, 30}, r.Modifiers[0].RequiredEntities)
}

func TestAccumulate_PointModifiersNotRecursive(t *testing.T) {
	var seen []Effect
	record := func(acc *value, e Effect) *value {
		seen = append(seen, e)
		return sumPoints(acc, e)
	}

	tgt := target(1, Effect{SourceID: 10, BasePoints: 1, PointModifiers: map[int64]float64{11: 2}})
	Accumulate(index(t, tgt), tgt, value{}, record)

	require.Len(t, seen, 2)
	assert.Nil(t, seen[1].PointModifiers)
	assert.Equal(t, 2.0, seen[1].BasePoints)
}

func TestAccumulate_Classification(t *testing.T) {
	learnedPassive := entity.New(11, entity.Learned{TaughtBy: 1})
	entity.Passive.Set(learnedPassive, true)
	activeBaseline := entity.New(12, entity.Baseline{})
	entity.Passive.Set(activeBaseline, false)

	tests := []struct {
		name     string
		source   int64
		baseline bool
	}{
		{"passive baseline", 10, true},
		{"passive but learned", 11, false},
		{"baseline but not passive", 12, false},
		{"unknown id", 99, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tgt := target(1, Effect{SourceID: tt.source, BasePoints: 4})
			idx := index(t, tgt, passiveBaseline(10), learnedPassive, activeBaseline)

			r := Accumulate(idx, tgt, value{}, sumPoints)
			require.NotNil(t, r)
			if tt.baseline {
				assert.Equal(t, 4.0, r.Base.Amount)
				assert.Empty(t, r.Modifiers)
			} else {
				assert.Equal(t, 0.0, r.Base.Amount)
				require.Len(t, r.Modifiers, 1)
				assert.Equal(t, []int64{tt.source}, r.Modifiers[0].RequiredEntities)
			}
		})
	}
}

func TestAccumulate_GroupsByRequirementInFirstAppearanceOrder(t *testing.T) {
	tgt := target(1,
		Effect{SourceID: 30, BasePoints: 1},
		Effect{SourceID: 20, BasePoints: 2},
		Effect{SourceID: 30, BasePoints: 4},
	)
	idx := index(t, tgt)

	r := Accumulate(idx, tgt, value{}, sumPoints)
	require.NotNil(t, r)
	require.Len(t, r.Modifiers, 2)
	assert.Equal(t, []int64{30}, r.Modifiers[0].RequiredEntities)
	assert.Equal(t, 5.0, r.Modifiers[0].Delta.Amount)
	assert.Equal(t, []int64{20}, r.Modifiers[1].RequiredEntities)
	assert.Equal(t, 2.0, r.Modifiers[1].Delta.Amount)
}

func TestAccumulate_DropsGroupsFoldingToNil(t *testing.T) {
	onlyAura := func(acc *value, e Effect) *value {
		if e.Aura != AuraAddFlatModifier {
			return acc
		}
		return sumPoints(acc, e)
	}

	tgt := target(1,
		Effect{SourceID: 20, Aura: AuraApplyGlyph, BasePoints: 9},
		Effect{SourceID: 30, Aura: AuraAddFlatModifier, BasePoints: 2},
	)
	r := Accumulate(index(t, tgt), tgt, value{Amount: 10}, onlyAura)

	require.NotNil(t, r)
	require.Len(t, r.Modifiers, 1)
	assert.Equal(t, []int64{30}, r.Modifiers[0].RequiredEntities)
}

func TestAccumulate_UndefinedBase(t *testing.T) {
	undefined := func(*value, Effect) *value { return nil }

	tgt := target(1, Effect{SourceID: 10})
	idx := index(t, tgt, passiveBaseline(10))

	assert.Nil(t, Accumulate(idx, tgt, value{Amount: 1}, undefined))
}

func TestAccumulate_UndefinedBaseKeepsModifiers(t *testing.T) {
	combine := func(acc *value, e Effect) *value {
		if e.SourceID == 10 {
			return nil
		}
		return sumPoints(acc, e)
	}

	tgt := target(1,
		Effect{SourceID: 10, BasePoints: 7},
		Effect{SourceID: 20, BasePoints: 3},
	)
	idx := index(t, tgt, passiveBaseline(10), entity.New(20, entity.Talent{}))

	r := Accumulate(idx, tgt, value{Amount: 1}, combine)
	require.NotNil(t, r)
	assert.True(t, r.NoBase)
	assert.Equal(t, value{}, r.Base)
	assert.Equal(t, []Modifier[value]{
		{Delta: value{Amount: 3}, RequiredEntities: []int64{20}},
	}, r.Modifiers)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"modifiers":[{"amount":3,"requiredEntities":[20]}]}`, string(data))

	assert.Equal(t, value{Amount: 3}, ApplyModifiers(r, func(int64) bool { return true }))
}

func TestApplyModifiers_NilResult(t *testing.T) {
	assert.Equal(t, value{}, ApplyModifiers[value](nil, func(int64) bool { return true }))
}

func TestApplyModifiers_ZeroDeltaCannotClear(t *testing.T) {
	r := &Result[value]{
		Base:      value{Amount: 10, Hasted: true},
		Modifiers: []Modifier[value]{{Delta: value{Hasted: false}, RequiredEntities: []int64{1}}},
	}
	assert.Equal(t, value{Amount: 10, Hasted: true}, ApplyModifiers(r, func(int64) bool { return true }))
}

func TestApplyModifiers_OverwritesNonNumeric(t *testing.T) {
	r := &Result[value]{
		Base: value{Amount: 1500},
		Modifiers: []Modifier[value]{
			{Delta: value{Hasted: true}, RequiredEntities: []int64{1}},
			{Delta: value{Amount: -500}, RequiredEntities: []int64{1, 2}},
		},
	}

	got := ApplyModifiers(r, func(id int64) bool { return id == 1 })
	assert.Equal(t, value{Amount: 1500, Hasted: true}, got)

	got = ApplyModifiers(r, func(int64) bool { return true })
	assert.Equal(t, value{Amount: 1000, Hasted: true}, got)
}

func TestApplyModifiers_Scalar(t *testing.T) {
	r := &Result[int64]{
		Base:      10,
		Modifiers: []Modifier[int64]{{Delta: 5, RequiredEntities: []int64{3}}},
	}
	assert.Equal(t, int64(15), ApplyModifiers(r, func(int64) bool { return true }))

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":10,"modifiers":[{"value":5,"requiredEntities":[3]}]}`, string(data))
}

func TestModifierJSON_OmitsUnsetFields(t *testing.T) {
	m := Modifier[value]{Delta: value{Hasted: true}, RequiredEntities: []int64{4, 5}}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hasted":true,"requiredEntities":[4,5]}`, string(data))
}

func TestEffectIndexFor(t *testing.T) {
	idx, ok := EffectIndexFor(MiscEffectIndex2)
	require.True(t, ok)
	assert.Equal(t, int64(2), idx)

	_, ok = EffectIndexFor(MiscCooldown)
	assert.False(t, ok)

	assert.True(t, ChargeCategoryAura(AuraModMaxCharges))
	assert.False(t, ChargeCategoryAura(AuraAddFlatModifier))
}
