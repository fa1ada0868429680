package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		ext  string
		want Category
	}{
		{".py", CategoryCode},
		{".go", CategoryCode},
		{".csv", CategoryText},
		{".txt", CategoryText},
		{".md", CategoryText},
		{".pdf", CategoryDocument},
		{".docx", CategoryDocument},
		{".weird", CategoryText},
		{"", CategoryText},
		{".PY", CategoryCode},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFor(tt.ext))
		})
	}
}

func TestStrategiesDifferByCategory(t *testing.T) {
	py := StrategyFor(".py")
	csv := StrategyFor(".csv")
	assert.NotEqual(t, py.ChunkSize, csv.ChunkSize)
	assert.NotEqual(t, py.Overlap, csv.Overlap)
	assert.NotEqual(t, py.Label, csv.Label)
}

func TestStrategySeparatorsCoarseToFine(t *testing.T) {
	for _, cat := range []Category{CategoryText, CategoryCode, CategoryDocument} {
		strat := strategies[cat]
		require.NotEmpty(t, strat.Separators)
		assert.Equal(t, "\n\n\n", strat.Separators[0])
		assert.Equal(t, "", strat.Separators[len(strat.Separators)-1])
	}
}

func TestSelectorSplit(t *testing.T) {
	sel := NewSelector()
	text := strings.Repeat("a paragraph of reasonable length.\n\n", 100)

	chunks, err := sel.Split(text, "notes.txt")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSelectorReusesSplitters(t *testing.T) {
	sel := NewSelector()
	_, err := sel.Split("short text", "a.txt")
	require.NoError(t, err)
	_, err = sel.Split("more text", "b.md")
	require.NoError(t, err)
	assert.Len(t, sel.splitters, 1) // same category, one splitter
}
