package embedding

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
)

// ModelConfig describes one entry in the embedding model catalog.
type ModelConfig struct {
	Name       string
	Dimensions int
	MemoryMB   int
	Tier       string
}

// Catalog is the fixed set of embedding models the selector chooses from.
var Catalog = []ModelConfig{
	{Name: "all-minilm", Dimensions: 384, MemoryMB: 500, Tier: "fast"},
	{Name: "nomic-embed-text", Dimensions: 768, MemoryMB: 1500, Tier: "balanced"},
	{Name: "mxbai-embed-large", Dimensions: 1024, MemoryMB: 3000, Tier: "quality"},
}

const defaultModel = "nomic-embed-text"

// MemoryProber reports available accelerator memory in MB, 0 when none is
// detected. Driver probing lives outside this package.
type MemoryProber interface {
	AvailableMemoryMB() int
}

type noProbe struct{}

func (noProbe) AvailableMemoryMB() int { return 0 }

// SelectionPolicy picks a model from the catalog given probed memory.
type SelectionPolicy func(availableMB int) ModelConfig

// DefaultPolicy always returns the balanced mid-size model regardless of
// memory. This is the active production behavior.
func DefaultPolicy(int) ModelConfig {
	return mustLookup(defaultModel)
}

// TieredPolicy selects by available accelerator memory. Documented but
// inactive unless embed_llm.auto_select is set; kept pluggable so it can be
// re-enabled without redesign.
func TieredPolicy(availableMB int) ModelConfig {
	switch {
	case availableMB >= 4000:
		return mustLookup("mxbai-embed-large")
	case availableMB >= 1000:
		return mustLookup(defaultModel)
	default:
		return mustLookup("all-minilm")
	}
}

func mustLookup(name string) ModelConfig {
	m, ok := Lookup(name)
	if !ok {
		panic("embedding: catalog entry missing: " + name)
	}
	return m
}

// Lookup finds a catalog entry by name.
func Lookup(name string) (ModelConfig, bool) {
	for _, m := range Catalog {
		if m.Name == name {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// Selector owns the embedding model choice and the constructed embedder
// client. The choice is memoized for the process lifetime; a later override
// that differs invalidates the memo and discards the client.
type Selector struct {
	mu     sync.Mutex
	cfg    *config.LLMConfig
	prober MemoryProber
	policy SelectionPolicy

	selected *ModelConfig
	override string
	embedder Embedder

	// newEmbedder is swappable in tests
	newEmbedder func(*config.LLMConfig, string) (Embedder, error)
}

func NewSelector(cfg *config.LLMConfig, prober MemoryProber) *Selector {
	if prober == nil {
		prober = noProbe{}
	}
	policy := DefaultPolicy
	if cfg.AutoSelect {
		policy = TieredPolicy
	}
	return &Selector{
		cfg:         cfg,
		prober:      prober,
		policy:      policy,
		newEmbedder: NewClientEmbedder,
	}
}

// Select resolves the model to use. A non-empty override is honored
// unconditionally; an unrecognized override is logged and falls back to the
// default model.
func (s *Selector) Select(override string) ModelConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected != nil && override == s.override {
		return *s.selected
	}
	if s.selected != nil && override != s.override {
		log.Info().Str("old", s.selected.Name).Str("override", override).
			Msg("embedding model override changed, discarding client")
		s.embedder = nil
	}

	var chosen ModelConfig
	switch {
	case override != "":
		m, ok := Lookup(override)
		if !ok {
			log.Warn().Str("override", override).Msg("unrecognized embedding model override, using default")
			m = mustLookup(defaultModel)
		}
		chosen = m
	default:
		chosen = s.policy(s.prober.AvailableMemoryMB())
	}

	s.selected = &chosen
	s.override = override
	log.Debug().Str("model", chosen.Name).Int("dimensions", chosen.Dimensions).
		Str("tier", chosen.Tier).Msg("embedding model selected")
	return chosen
}

// Embedder returns the client for the currently selected model, constructing
// it on first use.
func (s *Selector) Embedder(ctx context.Context) (Embedder, error) {
	s.mu.Lock()
	override := s.override
	s.mu.Unlock()
	model := s.Select(override)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.embedder != nil {
		return s.embedder, nil
	}
	e, err := s.newEmbedder(s.cfg, model.Name)
	if err != nil {
		return nil, err
	}
	s.embedder = e
	return e, nil
}

// Dimensions reports the vector size of the current selection.
func (s *Selector) Dimensions() int {
	s.mu.Lock()
	override := s.override
	s.mu.Unlock()
	return s.Select(override).Dimensions
}
