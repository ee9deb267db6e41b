package extract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromText_CompactLayout(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "My ID is 05122024_1645_1", "05122024_1645_1"},
		{"participant word", "05122024_1645_Participant3", "05122024_1645_3"},
		{"spaces", "id 05122024 1645 2 thanks", "05122024_1645_2"},
		{"dashes", "05122024-1645-7", "05122024_1645_7"},
		{"no sequence", "mia ID estas 05122024_1645", "05122024_1645"},
		{"embedded in sentence", "Saluton! Mi estas 28112024_0915_12 kaj mi lernas", "28112024_0915_12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := e.FromText(tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, c.Normalized())
		})
	}
}

func TestFromText_ClockTimeLayout(t *testing.T) {
	e := NewExtractor()
	c, ok := e.FromText("my id: 05122024 16:45 participant 4")
	require.True(t, ok)
	assert.Equal(t, "05122024_1645_4", c.Normalized())
}

func TestFromText_ParticipantFirstLayout(t *testing.T) {
	e := NewExtractor()
	c, ok := e.FromText("Participant 9, session 05122024_1645")
	require.True(t, ok)
	assert.Equal(t, "05122024_1645_9", c.Normalized())
}

func TestFromText_SlashedDateLayout(t *testing.T) {
	e := NewExtractor()

	c, ok := e.FromText("I started on 5/12/2024 16:45 3")
	require.True(t, ok)
	assert.Equal(t, "05122024_1645_3", c.Normalized())

	// Two-digit year expands to 20YY.
	c, ok = e.FromText("5-12-24 16:45 participant 3")
	require.True(t, ok)
	assert.Equal(t, "05122024_1645_3", c.Normalized())
}

func TestFromText_RangeValidation(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name string
		text string
	}{
		{"month 13", "05132024_1645_1"},
		{"day 32", "32122024_1645_1"},
		{"hour 24", "05122024_2445_1"},
		{"minute 60", "05122024_1660_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := e.FromText(tt.text)
			assert.False(t, ok, "range-invalid candidate must be discarded, not coerced")
		})
	}
}

func TestFromText_NoLooseFallbacks(t *testing.T) {
	e := NewExtractor()

	// These all matched under the old heuristics and produced false links.
	for _, text := range []string{
		"My ID is 12345",
		"I am the 3rd participant",
		"participant number unknown",
		"call me 42",
		"",
		"login",
	} {
		_, ok := e.FromText(text)
		assert.False(t, ok, "text %q must not yield an identifier", text)
	}
}

func TestFromText_FirstStructuralMatchWins(t *testing.T) {
	e := NewExtractor()
	// Both a compact ID and a slashed date appear; compact has priority.
	c, ok := e.FromText("01112024_0900_5 (also written 1/11/2024 9:00 5)")
	require.True(t, ok)
	assert.Equal(t, "compact", c.Layout)
	assert.Equal(t, "01112024_0900_5", c.Normalized())
}

func TestFromDeclared(t *testing.T) {
	e := NewExtractor()

	c, ok := e.FromDeclared("05122024_1645_1")
	require.True(t, ok)
	assert.Equal(t, "05122024_1645_1", c.Normalized())

	_, ok = e.FromDeclared("participant-1")
	assert.False(t, ok)
}

func TestDerive(t *testing.T) {
	ts := time.Date(2024, time.December, 5, 16, 45, 30, 0, time.UTC)
	c := Derive(ts)
	assert.Equal(t, "05122024_1645", c.Normalized())
	assert.True(t, c.Valid())
}

func TestCandidate_BaseStripsSequence(t *testing.T) {
	c := Candidate{Day: 5, Month: 12, Year: 2024, Hour: 16, Minute: 45, Seq: 2}
	assert.Equal(t, "05122024_1645", c.Base())
	assert.Equal(t, "05122024_1645_2", c.Normalized())
}

func TestEquivalenceKey(t *testing.T) {
	assert.Equal(t, "051220241645participant1", EquivalenceKey("05122024_1645_Participant1"))
	assert.Equal(t, EquivalenceKey("05122024_1645_1"), EquivalenceKey("05122024-1645-1"))
	assert.Equal(t, "", EquivalenceKey("___"))
}

func TestLoadLayouts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layouts.yaml")
	content := `layouts:
  - name: dotted
    pattern: '(?P<day>\d{2})\.(?P<month>\d{2})\.(?P<year>\d{4})\.(?P<hour>\d{2})(?P<minute>\d{2})'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	layouts, err := LoadLayouts(path)
	require.NoError(t, err)
	require.Len(t, layouts, 1)

	e := NewExtractor(layouts...)
	c, ok := e.FromText("id 05.12.2024.1645")
	require.True(t, ok)
	assert.Equal(t, "dotted", c.Layout)
	assert.Equal(t, "05122024_1645", c.Normalized())
}

func TestLoadLayouts_MissingGroup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layouts.yaml")
	content := `layouts:
  - name: broken
    pattern: '(?P<day>\d{2})only'
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadLayouts(path)
	assert.Error(t, err)
}
