package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"negative", int64(-100), "-100"},
		{"float", 1.5, "1.5"},
		{"null", nil, "null"},
		{"bool", true, "true"},
		{"empty array", []int{}, "[]"},
		{"empty object", map[string]int{}, "{}"},
		{"sorted keys", map[string]int{"zebra": 1, "alpha": 2, "beta": 3}, `{"alpha":2,"beta":3,"zebra":1}`},
		{"nested", map[string]any{"z": map[string]int{"b": 1, "a": 2}, "a": 3}, `{"a":3,"z":{"a":2,"b":1}}`},
		{"no html escape", "<a & b>", `"<a & b>"`},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"control escaped", "a\nb\x01", `"a\nb\u0001"`},
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshal_StructTags(t *testing.T) {
	type row struct {
		Name  string `json:"name"`
		Count int    `json:"count,omitempty"`
		ID    int64  `json:"id"`
	}

	got, err := Marshal(row{Name: "x", ID: 7})
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"name":"x"}`, string(got))
}

func TestMarshal_NFC(t *testing.T) {
	// "é" as e + combining acute accent normalizes to U+00E9.
	got, err := Marshal("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestCompareKeys_UTF16Order(t *testing.T) {
	// U+FFFD sorts before U+1F600 in UTF-8 but after it in UTF-16
	// (the emoji encodes as surrogates starting 0xD83D).
	assert.Equal(t, 1, CompareKeys("\uFFFD", "\U0001F600"))
	assert.Equal(t, -1, CompareKeys("a", "b"))
	assert.Equal(t, -1, CompareKeys("a", "ab"))
	assert.Equal(t, 0, CompareKeys("same", "same"))
}

func TestHash_DomainSeparated(t *testing.T) {
	v := map[string]any{"order": []string{"a", "b"}}

	h1, err := Hash(DomainPlan, v)
	require.NoError(t, err)
	h2, err := Hash(DomainPlan, map[string]any{"order": []string{"a", "b"}})
	require.NoError(t, err)
	h3, err := Hash(DomainSnapshot, v)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}

func TestHash_Unmarshalable(t *testing.T) {
	_, err := Hash(DomainPlan, make(chan int))
	require.Error(t, err)
}
