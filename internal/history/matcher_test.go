package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
)

func entry(question, answer string) models.HistoryEntry {
	return models.HistoryEntry{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Question:  question,
		Answer:    answer,
	}
}

func TestTokenize(t *testing.T) {
	toks := tokenize("What is MY favorite RFC number, really?")
	assert.Contains(t, toks, "what")
	assert.Contains(t, toks, "rfc")
	assert.Contains(t, toks, "number")
	assert.NotContains(t, toks, "is") // stop word
	assert.NotContains(t, toks, "my") // stop word
}

func TestContentKeywordsDropInterrogatives(t *testing.T) {
	set := contentKeywords("What is my RFC number?")
	assert.False(t, set["what"])
	assert.True(t, set["rfc"])
	assert.True(t, set["number"])
}

func TestSearchRFCExample(t *testing.T) {
	entries := []models.HistoryEntry{entry("my RFC", "ABC123456XYZ")}

	matches := Search("What is my RFC number?", entries, models.HistoryMatchThreshold, 5)
	require.Len(t, matches, 1)
	assert.Greater(t, matches[0].Score, 0.2)
	assert.Equal(t, "ABC123456XYZ", matches[0].Entry.Answer)
}

func TestSearchDeterministic(t *testing.T) {
	entries := []models.HistoryEntry{
		entry("my RFC", "ABC"),
		entry("the RFC number of my company", "DEF"),
		entry("when is my dentist appointment", "GHI"),
	}

	first := Search("What is my RFC number?", entries, 0.1, 3)
	for i := 0; i < 10; i++ {
		again := Search("What is my RFC number?", entries, 0.1, 3)
		require.Equal(t, first, again)
	}
}

func TestSearchExcludesEmptyIntersection(t *testing.T) {
	entries := []models.HistoryEntry{entry("favorite pizza topping", "pepperoni")}

	matches := Search("What is my RFC number?", entries, 0.0, 5)
	assert.Empty(t, matches)
}

func TestSearchThresholdExcludes(t *testing.T) {
	entries := []models.HistoryEntry{entry("notes about gardening projects and number theory", "long answer")}

	low := Search("what number did I write down", entries, 0.0, 5)
	require.NotEmpty(t, low)
	high := Search("what number did I write down", entries, 0.99, 5)
	assert.Empty(t, high)
}

func TestStructuredAndCitationBonuses(t *testing.T) {
	plain := entry("my RFC", "plain answer")
	enriched := entry("my RFC", "enriched answer")
	enriched.Structured = map[string]string{"rfc": "ABC123456XYZ"}
	enriched.Sources = []string{"taxes/rfc.pdf"}
	enriched.Timestamp = enriched.Timestamp.Add(time.Hour)

	matches := Search("What is my RFC?", []models.HistoryEntry{plain, enriched}, 0.1, 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "enriched answer", matches[0].Entry.Answer)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestSearchTopKTruncation(t *testing.T) {
	var entries []models.HistoryEntry
	for i := 0; i < 10; i++ {
		e := entry("my RFC number", "answer")
		e.Timestamp = e.Timestamp.Add(time.Duration(i) * time.Minute)
		entries = append(entries, e)
	}
	matches := Search("What is my RFC number?", entries, 0.1, 3)
	assert.Len(t, matches, 3)
}

func TestScoreClamped(t *testing.T) {
	e := entry("my RFC CURP NSS email phone number date", "answer")
	e.Structured = map[string]string{"rfc": "x"}
	e.Sources = []string{"doc.pdf"}

	matches := Search("RFC CURP NSS email phone number date", []models.HistoryEntry{e}, 0.1, 1)
	require.Len(t, matches, 1)
	assert.LessOrEqual(t, matches[0].Score, 1.0)
}
