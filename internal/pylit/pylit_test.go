package pylit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleQuotedString(t *testing.T) {
	v, err := Parse(`'hello'`)
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestParse_DoubleQuoteInsideSingleQuotes(t *testing.T) {
	// The defining divergence from JSON: an unescaped double quote inside a
	// single-quoted string.
	v, err := Parse(`'she said "saluton"'`)
	require.NoError(t, err)
	assert.Equal(t, `she said "saluton"`, v)
}

func TestParse_Escapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"newline", `'a\nb'`, "a\nb"},
		{"tab", `'a\tb'`, "a\tb"},
		{"escaped single quote", `'it\'s'`, "it's"},
		{"escaped backslash", `'a\\b'`, `a\b`},
		{"unicode", `'A'`, "A"},
		{"hex", `'\x41'`, "A"},
		{"unknown escape kept", `'a\qb'`, `a\qb`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestParse_Numbers(t *testing.T) {
	v, err := Parse(`42`)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = Parse(`-7`)
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v)

	v, err = Parse(`1734351921.48923`)
	require.NoError(t, err)
	assert.InDelta(t, 1734351921.48923, v, 1e-6)

	v, err = Parse(`1e3`)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, v, 1e-9)
}

func TestParse_Keywords(t *testing.T) {
	v, err := Parse(`None`)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = Parse(`True`)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Parse(`False`)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestParse_ListAndTuple(t *testing.T) {
	v, err := Parse(`['a', 'b']`)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)

	// Tuples decode to the same shape as lists.
	v, err = Parse(`('user', None)`)
	require.NoError(t, err)
	assert.Equal(t, []any{"user", nil}, v)

	v, err = Parse(`[]`)
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)
}

func TestParse_Dict(t *testing.T) {
	v, err := Parse(`{'role': 'user', 'weight': 1.0, 'end_turn': True}`)
	require.NoError(t, err)
	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", m["role"])
	assert.InDelta(t, 1.0, m["weight"], 1e-9)
	assert.Equal(t, true, m["end_turn"])
}

func TestParse_TrailingComma(t *testing.T) {
	v, err := Parse(`{'a': 1,}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1)}, v)

	v, err = Parse(`[1, 2,]`)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, v)
}

func TestParse_NestedMappingTree(t *testing.T) {
	input := `{'node-1': {'id': 'node-1', 'message': {'author': {'role': 'user'}, 'content': {'content_type': 'text', 'parts': ['Mi estas komencanto']}, 'create_time': 1733412300.5}, 'parent': None, 'children': ['node-2']}}`
	v, err := Parse(input)
	require.NoError(t, err)
	root := v.(map[string]any)["node-1"].(map[string]any)
	msg := root["message"].(map[string]any)
	assert.Equal(t, "user", msg["author"].(map[string]any)["role"])
	assert.Equal(t, []any{"Mi estas komencanto"}, msg["content"].(map[string]any)["parts"])
	assert.Nil(t, root["parent"])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ``},
		{"unterminated string", `'abc`},
		{"unterminated dict", `{'a': 1`},
		{"missing colon", `{'a' 1}`},
		{"trailing garbage", `{'a': 1} x`},
		{"bare identifier", `hello`},
		{"unterminated list", `[1, 2`},
		{"lone minus", `-`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParse_JSONStyleInputStillParses(t *testing.T) {
	// Double-quoted payloads occur in re-exported rows; the grammar accepts
	// them even though the dialect default is single quotes.
	v, err := Parse(`{"role": "assistant"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"role": "assistant"}, v)
}
