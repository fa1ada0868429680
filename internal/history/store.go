package history

import (
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"document-qa/internal/models"
)

// Store is an append-only answer log keyed by timestamp, backed by a local
// badger database. Entries are never mutated; the only removal is
// delete-by-timestamp.
type Store struct {
	store *badgerhold.Store
}

func Open(path string) (*Store, error) {
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	return &Store{store: store}, nil
}

// Append persists one answered question. The timestamp key must be unique.
func (s *Store) Append(entry models.HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := s.store.Insert(entry.Timestamp, entry); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// All returns every stored entry ordered by timestamp.
func (s *Store) All() ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := s.store.Find(&entries, badgerhold.Where("Question").Ne("").SortBy("Timestamp"))
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return entries, nil
}

// DeleteByTimestamp removes the entry stored under the given key.
func (s *Store) DeleteByTimestamp(ts time.Time) error {
	if err := s.store.Delete(ts, &models.HistoryEntry{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.store.Close()
}
