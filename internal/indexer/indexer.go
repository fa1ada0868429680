package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"document-qa/internal/chromemdb"
	"document-qa/internal/chunker"
	"document-qa/internal/detector"
	"document-qa/internal/embedding"
	"document-qa/internal/filerecord"
	"document-qa/internal/models"
	"document-qa/internal/parser"
)

// Indexer walks a directory, detects changed files, splits them into chunks,
// requests embeddings and upserts the vectors under a stable collection
// identifier. All collaborators are injected.
type Indexer struct {
	engine     chromemdb.Engine
	embedder   embedding.Embedder
	records    filerecord.Store
	selector   *chunker.Selector
	collection string
	workers    int

	// loadFile is swappable in tests
	loadFile func(string) (string, error)
}

func New(engine chromemdb.Engine, embedder embedding.Embedder, records filerecord.Store, selector *chunker.Selector, collection string) *Indexer {
	return &Indexer{
		engine:     engine,
		embedder:   embedder,
		records:    records,
		selector:   selector,
		collection: collection,
		workers:    models.DefaultEmbedWorkers,
		loadFile:   parser.Load,
	}
}

// IndexIncremental ingests new and modified regular files under dir.
// Unchanged files are skipped with zero embedding requests and zero vector
// writes. A failure for one file is recorded and the batch proceeds; only
// cancellation aborts, and only at file boundaries. forceFull drops and
// recreates the vector collection and reprocesses every file.
func (ix *Indexer) IndexIncremental(ctx context.Context, dir string, forceFull bool) (models.IndexReport, error) {
	report := models.IndexReport{}

	paths, err := listRegularFiles(dir)
	if err != nil {
		return report, fmt.Errorf("failed to enumerate %s: %w", dir, err)
	}

	known := map[string]string{}
	if forceFull {
		if err := ix.engine.Drop(ix.collection); err != nil {
			log.Warn().Err(err).Str("collection", ix.collection).Msg("failed to drop collection before full reindex")
		}
	} else {
		known, err = ix.records.KnownHashes(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to read known hashes: %w", err)
		}
	}

	var mu sync.Mutex // serializes report and file-record writes
	g := new(errgroup.Group)
	g.SetLimit(ix.workers)

	for _, path := range paths {
		// cancellation is honored between files, never mid-chunk
		if err := ctx.Err(); err != nil {
			break
		}
		path := path
		g.Go(func() error {
			ix.processFile(ctx, path, known[path], &mu, &report)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	ix.markMissing(ctx, known, paths, &mu, &report)

	log.Info().Int("new", report.New).Int("modified", report.Modified).
		Int("skipped", report.Skipped).Int("chunks", report.TotalChunks).
		Int("failed", len(report.Failed)).Msg("indexing run complete")
	return report, nil
}

func (ix *Indexer) processFile(ctx context.Context, path, knownHash string, mu *sync.Mutex, report *models.IndexReport) {
	cls, hash, err := detector.Classify(path, knownHash)
	if err != nil {
		// half-read files are never indexed
		log.Warn().Err(err).Str("path", path).Msg("fingerprint failed, skipping file")
		recordFailure(mu, report, path, err)
		return
	}
	if cls == detector.Unchanged {
		mu.Lock()
		report.Skipped++
		mu.Unlock()
		return
	}

	chunkCount, err := ix.ingest(ctx, path, hash)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ingestion failed, continuing batch")
		recordFailure(mu, report, path, err)
		ix.writeRecord(ctx, mu, path, hash, 0, models.StatusFailed)
		return
	}

	ix.writeRecord(ctx, mu, path, hash, chunkCount, models.StatusIndexed)

	mu.Lock()
	switch cls {
	case detector.New:
		report.New++
	case detector.Modified:
		report.Modified++
	}
	report.TotalChunks += chunkCount
	mu.Unlock()
}

// ingest loads, splits, embeds and upserts one file. Returns the number of
// chunks written.
func (ix *Indexer) ingest(ctx context.Context, path, hash string) (int, error) {
	content, err := ix.loadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load: %w", err)
	}
	texts, err := ix.selector.Split(content, path)
	if err != nil {
		return 0, fmt.Errorf("failed to split: %w", err)
	}
	if len(texts) == 0 {
		return 0, nil
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return 0, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(texts), len(vectors))
	}

	strategy := chunker.StrategyFor(filepath.Ext(path))
	chunks := make([]models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = models.Chunk{
			ID:         uuid.NewString(),
			Content:    text,
			SourcePath: path,
			Strategy:   strategy.Label,
			Position:   i,
			Embedding:  vectors[i],
		}
	}
	if err := ix.engine.Upsert(ctx, ix.collection, chunkDocs(chunks, hash)); err != nil {
		return 0, fmt.Errorf("failed to upsert vectors: %w", err)
	}
	return len(chunks), nil
}

// chunkDocs maps chunks onto the engine's document form, flattening the chunk
// fields into queryable metadata.
func chunkDocs(chunks []models.Chunk, hash string) []chromemdb.Doc {
	docs := make([]chromemdb.Doc, len(chunks))
	for i, c := range chunks {
		docs[i] = chromemdb.Doc{
			ID:      c.ID,
			Content: c.Content,
			Metadata: map[string]string{
				"source":      c.SourcePath,
				"strategy":    c.Strategy,
				"position":    strconv.Itoa(c.Position),
				"fingerprint": hash,
			},
			Embedding: c.Embedding,
		}
	}
	return docs
}

func (ix *Indexer) writeRecord(ctx context.Context, mu *sync.Mutex, path, hash string, chunkCount int, status string) {
	info, err := os.Stat(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to stat file for record")
		return
	}
	rec := &filerecord.FileRecord{
		Path:        path,
		Fingerprint: hash,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IndexedAt:   time.Now(),
		Category:    chunker.CategoryFor(filepath.Ext(path)).String(),
		ChunkCount:  chunkCount,
		Status:      status,
	}
	mu.Lock()
	defer mu.Unlock()
	if err := ix.records.Upsert(ctx, rec); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to persist file record")
	}
}

// markMissing flags records whose files are gone from disk. Records are never
// physically removed.
func (ix *Indexer) markMissing(ctx context.Context, known map[string]string, paths []string, mu *sync.Mutex, report *models.IndexReport) {
	onDisk := make(map[string]bool, len(paths))
	for _, p := range paths {
		onDisk[p] = true
	}
	for path := range known {
		if onDisk[path] {
			continue
		}
		mu.Lock()
		err := ix.records.MarkDeleted(ctx, path)
		mu.Unlock()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to mark record deleted")
			continue
		}
		log.Debug().Str("path", path).Msg("source file gone, record marked deleted")
	}
}

func recordFailure(mu *sync.Mutex, report *models.IndexReport, path string, err error) {
	mu.Lock()
	report.Failed = append(report.Failed, models.FileFailure{Path: path, Reason: err.Error()})
	mu.Unlock()
}

func listRegularFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			paths = append(paths, abs)
		}
		return nil
	})
	return paths, err
}
