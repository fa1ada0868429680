package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreAppendAndAll(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(models.HistoryEntry{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Question:  "question",
			Answer:    "answer",
		}))
	}

	entries, err := store.All()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.True(t, entries[0].Timestamp.Before(entries[1].Timestamp))
	assert.True(t, entries[1].Timestamp.Before(entries[2].Timestamp))
}

func TestStoreAppendDefaultsTimestamp(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Append(models.HistoryEntry{Question: "q", Answer: "a"}))

	entries, err := store.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestStoreDeleteByTimestamp(t *testing.T) {
	store := openTestStore(t)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(models.HistoryEntry{Timestamp: ts, Question: "q", Answer: "a"}))

	require.NoError(t, store.DeleteByTimestamp(ts))
	entries, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// deleting a missing key is not an error
	assert.NoError(t, store.DeleteByTimestamp(ts))
}

func TestStoreEntriesSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(models.HistoryEntry{
		Timestamp:  ts,
		Question:   "my RFC",
		Answer:     "ABC123456XYZ",
		Structured: map[string]string{"rfc": "ABC123456XYZ"},
		Sources:    []string{"taxes/rfc.pdf"},
		Verified:   true,
	}))
	require.NoError(t, store.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	entries, err := reopened.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ABC123456XYZ", entries[0].Answer)
	assert.True(t, entries[0].Verified)
	assert.Equal(t, []string{"taxes/rfc.pdf"}, entries[0].Sources)
}
