package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"document-qa/internal/cache"
	"document-qa/internal/chromemdb"
	"document-qa/internal/chunker"
	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/filerecord"
	"document-qa/internal/history"
	"document-qa/internal/indexer"
	"document-qa/internal/models"
	"document-qa/internal/retriever"
)

// HistoryLog is the slice of the history store the service depends on.
type HistoryLog interface {
	Append(entry models.HistoryEntry) error
	All() ([]models.HistoryEntry, error)
	DeleteByTimestamp(ts time.Time) error
}

// Response is the outcome of one question. When a stored answer scored above
// the reuse cutoff, Answer carries it and no retrieval happened.
type Response struct {
	Query       string                 `json:"query"`
	FromHistory bool                   `json:"from_history"`
	Answer      string                 `json:"answer,omitempty"`
	Retrieval   models.RetrievalResult `json:"retrieval"`
}

// Service owns the long-lived retrieval components. Instances are injected
// explicitly and shut down through Close; there are no package-level
// singletons.
type Service struct {
	cfg    *config.Config
	cache  *cache.Cache
	retr   *retriever.Retriever
	ix     *indexer.Indexer
	hist   HistoryLog
	engine chromemdb.Engine

	closers []func() error
}

// New wires a service from already-constructed collaborators. Used directly
// in tests; production wiring goes through NewFromConfig.
func New(cfg *config.Config, engine chromemdb.Engine, embedder embedding.Embedder, records filerecord.Store, hist HistoryLog) *Service {
	chunks := chunker.NewSelector()
	return &Service{
		cfg:    cfg,
		cache:  cache.New(cfg.Cache.Capacity, cfg.Cache.TTL),
		retr:   retriever.New(engine, embedder, cfg.RAG.Collection),
		ix:     indexer.New(engine, embedder, records, chunks, cfg.RAG.Collection),
		hist:   hist,
		engine: engine,
	}
}

// NewFromConfig builds the full production service: chromem vector store,
// ollama embedder via the model selector, postgres file records and the
// badger-backed history log.
func NewFromConfig(ctx context.Context, cfg *config.Config, prober embedding.MemoryProber) (*Service, error) {
	engine, err := chromemdb.NewVectorDBManager(cfg.RAG.VectorDBPath, cfg.RAG.InMemory, cfg.RAG.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	selector := embedding.NewSelector(&cfg.EmbedLLM, prober)
	selector.Select(cfg.EmbedLLM.Model)
	embedder, err := selector.Embedder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build embedder: %w", err)
	}

	sqldb, err := filerecord.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	records := filerecord.NewStore(sqldb, cfg.Database.Debug)
	if err := records.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to init file records: %w", err)
	}

	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	svc := New(cfg, engine, embedder, records, hist)
	svc.closers = append(svc.closers, records.Close, hist.Close)
	return svc, nil
}

// IndexIncremental runs a batch ingestion. Long-running; expected to execute
// on a background goroutine so it never blocks query serving.
func (s *Service) IndexIncremental(ctx context.Context, dir string, forceFull bool) (models.IndexReport, error) {
	return s.ix.IndexIncremental(ctx, dir, forceFull)
}

// Retrieve serves a similarity query through the cache.
func (s *Service) Retrieve(ctx context.Context, query string, opts retriever.Options) (models.RetrievalResult, error) {
	params := cacheParams(opts)
	if result, ok := s.cache.Get(query, params); ok {
		return result, nil
	}
	result, err := s.retr.Retrieve(ctx, query, opts)
	if err != nil {
		return models.RetrievalResult{}, err
	}
	s.cache.Put(query, params, result)
	return result, nil
}

// Query answers a question: a close-enough previously answered question wins
// outright, otherwise the context is retrieved for generation downstream.
func (s *Service) Query(ctx context.Context, question string, opts retriever.Options) (Response, error) {
	entries, err := s.hist.All()
	if err != nil {
		log.Warn().Err(err).Msg("history unavailable, falling through to retrieval")
	} else if matches := history.Search(question, entries, models.HistoryMatchThreshold, 1); len(matches) > 0 &&
		matches[0].Score >= models.HistoryReuseCutoff {
		log.Debug().Float64("score", matches[0].Score).Msg("reusing stored answer")
		return Response{Query: question, FromHistory: true, Answer: matches[0].Entry.Answer}, nil
	}

	result, err := s.Retrieve(ctx, question, opts)
	if err != nil {
		return Response{}, err
	}
	return Response{Query: question, Retrieval: result}, nil
}

// SearchHistory lists ranked candidates from the answer log.
func (s *Service) SearchHistory(question string, threshold float64, topK int) ([]models.HistoryMatch, error) {
	entries, err := s.hist.All()
	if err != nil {
		return nil, err
	}
	return history.Search(question, entries, threshold, topK), nil
}

// SaveAnswer appends an answered question for future reuse.
func (s *Service) SaveAnswer(entry models.HistoryEntry) error {
	return s.hist.Append(entry)
}

// DeleteAnswer removes one history entry by its timestamp key.
func (s *Service) DeleteAnswer(ts time.Time) error {
	return s.hist.DeleteByTimestamp(ts)
}

// ExportCollection snapshots the configured collection to the vector db
// folder. Only engines with a snapshot surface support this.
func (s *Service) ExportCollection(ctx context.Context) error {
	exp, ok := s.engine.(chromemdb.Exporter)
	if !ok {
		return fmt.Errorf("vector engine does not support export")
	}
	return exp.Export(ctx, s.cfg.RAG.Collection)
}

// ImportCollection restores a previously exported snapshot of the configured
// collection.
func (s *Service) ImportCollection(ctx context.Context) error {
	exp, ok := s.engine.(chromemdb.Exporter)
	if !ok {
		return fmt.Errorf("vector engine does not support import")
	}
	return exp.Import(ctx, s.cfg.RAG.Collection)
}

// CacheInvalidate drops cached results for a query, or everything when the
// query is empty.
func (s *Service) CacheInvalidate(query string) {
	s.cache.Invalidate(query)
}

// CacheStats exposes the cumulative cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Close releases owned resources in reverse construction order.
func (s *Service) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func cacheParams(opts retriever.Options) cache.Params {
	return cache.Params{
		K:               opts.K,
		FetchK:          opts.FetchK,
		ScoreThreshold:  opts.ScoreThreshold,
		Diversify:       opts.Diversify,
		DiversityWeight: opts.DiversityWeight,
	}
}
