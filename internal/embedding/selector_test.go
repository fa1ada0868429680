package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/config"
)

type fakeProber struct{ mb int }

func (p fakeProber) AvailableMemoryMB() int { return p.mb }

type fakeEmbedder struct{ model string }

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, nil }
func (fakeEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, nil
}

func newTestSelector(autoSelect bool, mb int) *Selector {
	cfg := &config.LLMConfig{BaseURL: "http://localhost:11434", AutoSelect: autoSelect}
	s := NewSelector(cfg, fakeProber{mb: mb})
	s.newEmbedder = func(_ *config.LLMConfig, model string) (Embedder, error) {
		return fakeEmbedder{model: model}, nil
	}
	return s
}

func TestSelectDefaultIgnoresMemory(t *testing.T) {
	for _, mb := range []int{0, 500, 8000} {
		s := newTestSelector(false, mb)
		assert.Equal(t, "nomic-embed-text", s.Select("").Name)
	}
}

func TestSelectTieredPolicy(t *testing.T) {
	tests := []struct {
		mb   int
		want string
	}{
		{0, "all-minilm"},
		{999, "all-minilm"},
		{1000, "nomic-embed-text"},
		{3999, "nomic-embed-text"},
		{4000, "mxbai-embed-large"},
	}
	for _, tt := range tests {
		s := newTestSelector(true, tt.mb)
		assert.Equal(t, tt.want, s.Select("").Name, "mb=%d", tt.mb)
	}
}

func TestSelectOverrideHonored(t *testing.T) {
	s := newTestSelector(false, 0)
	assert.Equal(t, "all-minilm", s.Select("all-minilm").Name)
}

func TestSelectUnknownOverrideFallsBack(t *testing.T) {
	s := newTestSelector(false, 0)
	assert.Equal(t, "nomic-embed-text", s.Select("no-such-model").Name)
}

func TestSelectMemoized(t *testing.T) {
	s := newTestSelector(false, 0)
	first := s.Select("")
	ptr := s.selected
	second := s.Select("")
	assert.Equal(t, first, second)
	assert.Same(t, ptr, s.selected) // memo survives repeated calls
}

func TestOverrideChangeDiscardsEmbedder(t *testing.T) {
	s := newTestSelector(false, 0)
	s.Select("")
	_, err := s.Embedder(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s.embedder)

	s.Select("all-minilm")
	assert.Nil(t, s.embedder)

	e, err := s.Embedder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", e.(fakeEmbedder).model)
}

func TestDimensionsMatchCatalog(t *testing.T) {
	s := newTestSelector(false, 0)
	assert.Equal(t, 768, s.Dimensions())
	s.Select("mxbai-embed-large")
	assert.Equal(t, 1024, s.Dimensions())
}
