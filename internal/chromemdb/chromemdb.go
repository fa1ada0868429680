package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
)

// Doc is one chunk vector handed to the engine for storage.
type Doc struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
}

// Neighbor is one nearest-neighbor candidate. Distance is engine native
// (1 - cosine similarity for chromem), not pre-normalized.
type Neighbor struct {
	ID        string
	Content   string
	Metadata  map[string]string
	Embedding []float32
	Distance  float64
}

// Engine is the vector-store contract the indexer and retriever consume.
type Engine interface {
	Upsert(ctx context.Context, collection string, docs []Doc) error
	QueryNearest(ctx context.Context, collection string, queryVector []float32, topN int, filter map[string]string) ([]Neighbor, error)
	Count(collection string) (int, error)
	Drop(collection string) error
}

// Exporter is the optional snapshot surface of a vector engine.
type Exporter interface {
	Export(ctx context.Context, collection string) error
	Import(ctx context.Context, collection string) error
}

// VectorDBManager encapsulates the chromem-go database operations.
type VectorDBManager struct {
	db            *chromem.DB
	dbPath        string
	inMemory      bool
	compress      bool
	encryptionKey string
}

const compress = false

// NewVectorDBManager initializes a new vector database manager.
func NewVectorDBManager(dbPath string, inMemory bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		inMemory:      inMemory,
		compress:      compress,
		encryptionKey: encryptionKey,
	}, nil
}

func (m *VectorDBManager) collection(name string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection %s: %w", name, err)
	}
	return c, nil
}

// Upsert writes chunk vectors under the given collection. Re-adding an
// existing ID replaces it.
func (m *VectorDBManager) Upsert(ctx context.Context, collection string, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}
	c, err := m.collection(collection)
	if err != nil {
		return err
	}
	chromemDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromemDocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Metadata:  doc.Metadata,
			Embedding: doc.Embedding,
		}
	}
	if err := c.AddDocuments(ctx, chromemDocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// QueryNearest returns up to topN nearest candidates with engine-native
// distance. topN is clamped to the collection size; chromem rejects
// over-sized result requests.
func (m *VectorDBManager) QueryNearest(ctx context.Context, collection string, queryVector []float32, topN int, filter map[string]string) ([]Neighbor, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	c, err := m.collection(collection)
	if err != nil {
		return nil, err
	}
	if count := c.Count(); topN > count {
		topN = count
	}
	if topN == 0 {
		return nil, nil
	}

	results, err := c.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: queryVector,
		NResults:       topN,
		Where:          filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	neighbors := make([]Neighbor, len(results))
	for i, r := range results {
		neighbors[i] = Neighbor{
			ID:        r.ID,
			Content:   r.Content,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
			Distance:  1 - float64(r.Similarity),
		}
	}
	return neighbors, nil
}

// Count reports the number of stored chunks in a collection.
func (m *VectorDBManager) Count(collection string) (int, error) {
	c, err := m.collection(collection)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Drop removes a collection and all its vectors. Used by force reindex.
func (m *VectorDBManager) Drop(collection string) error {
	if err := m.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", collection, err)
	}
	return nil
}

// Export writes an in-memory collection to disk. Requires the encryption key
// configured at construction.
func (m *VectorDBManager) Export(ctx context.Context, collection string) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	filePath := m.dbPath + "/" + collection + ".chromem"
	log.Debug().Str("collection", collection).Str("file", filePath).Msg("exporting collection")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, collection); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import restores a previously exported collection.
func (m *VectorDBManager) Import(ctx context.Context, collection string) error {
	filePath := m.dbPath + "/" + collection + ".chromem"
	if err := m.db.ImportFromFile(filePath, m.encryptionKey); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}
