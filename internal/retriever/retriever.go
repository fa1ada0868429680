package retriever

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"document-qa/internal/chromemdb"
	"document-qa/internal/embedding"
	"document-qa/internal/models"
)

// Options control one similarity query. Validated before any I/O.
type Options struct {
	K               int     `validate:"gte=1"`
	FetchK          int     `validate:"gte=0"`
	ScoreThreshold  float64 `validate:"gte=0,lte=1"`
	Diversify       bool
	DiversityWeight float64 `validate:"gte=0,lte=1"`
}

var validate = validator.New()

// Retriever issues similarity queries against the vector engine and turns
// engine distances into ranked, deduplicated, optionally diversified chunks.
type Retriever struct {
	engine     chromemdb.Engine
	embedder   embedding.Embedder
	collection string
}

func New(engine chromemdb.Engine, embedder embedding.Embedder, collection string) *Retriever {
	return &Retriever{engine: engine, embedder: embedder, collection: collection}
}

// similarityFromDistance maps engine-native distance to (0,1]:
// distance 0 -> 1.0, distance 1 -> 0.5.
func similarityFromDistance(d float64) float64 {
	return 1 / (1 + d)
}

// Retrieve embeds the query, fetches fetchK candidates, filters by the score
// threshold, optionally re-ranks for diversity, deduplicates by content, and
// truncates to K. Engine failures surface as errors; retry policy belongs to
// the caller. A retrieval either fully succeeds or fully fails.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (models.RetrievalResult, error) {
	if err := validate.Struct(&opts); err != nil {
		return models.RetrievalResult{}, fmt.Errorf("invalid retrieval options: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return models.RetrievalResult{}, fmt.Errorf("query must not be empty")
	}
	fetchK := opts.FetchK
	if fetchK == 0 {
		fetchK = opts.K * models.DefaultFetchMultiplier
	}
	if fetchK < opts.K {
		return models.RetrievalResult{}, fmt.Errorf("fetch_k %d must not be below k %d", fetchK, opts.K)
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("failed to embed query: %w", err)
	}

	neighbors, err := r.engine.QueryNearest(ctx, r.collection, queryVec, fetchK, nil)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("vector engine query failed: %w", err)
	}

	// distance -> similarity, then drop everything below the floor
	candidates := make([]candidate, 0, len(neighbors))
	for _, n := range neighbors {
		sim := similarityFromDistance(n.Distance)
		if sim < opts.ScoreThreshold {
			continue
		}
		candidates = append(candidates, candidate{
			content:    n.Content,
			metadata:   n.Metadata,
			embedding:  n.Embedding,
			similarity: sim,
		})
	}

	if opts.Diversify && len(candidates) > 1 {
		candidates = diversify(queryVec, candidates, opts.DiversityWeight)
	}

	// dedup identical text content before final truncation
	seen := make(map[[32]byte]bool, len(candidates))
	deduped := candidates[:0]
	for _, c := range candidates {
		h := sha256.Sum256([]byte(c.content))
		if seen[h] {
			continue
		}
		seen[h] = true
		deduped = append(deduped, c)
	}

	// with diversification on, the MMR order decides which K survive so a
	// diversity pick is never displaced by its raw score
	byScore := func(i, j int) bool { return deduped[i].similarity > deduped[j].similarity }
	if !opts.Diversify {
		sort.SliceStable(deduped, byScore)
	}
	if len(deduped) > opts.K {
		deduped = deduped[:opts.K]
	}
	sort.SliceStable(deduped, byScore)

	chunks := make([]models.ScoredChunk, len(deduped))
	texts := make([]string, len(deduped))
	for i, c := range deduped {
		chunks[i] = models.ScoredChunk{
			Content:    c.content,
			Metadata:   c.metadata,
			Similarity: c.similarity,
		}
		texts[i] = c.content
	}

	log.Debug().Int("candidates", len(neighbors)).Int("returned", len(chunks)).
		Bool("diversify", opts.Diversify).Msg("retrieval complete")

	return models.RetrievalResult{
		Chunks:          chunks,
		Context:         strings.Join(texts, models.ContextSeparator),
		TotalCandidates: len(neighbors),
	}, nil
}

type candidate struct {
	content    string
	metadata   map[string]string
	embedding  []float32
	similarity float64
}
