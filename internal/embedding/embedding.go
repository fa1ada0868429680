package embedding

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"document-qa/internal/config"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder is the inference-service contract the rest of the pipeline depends
// on. Vector dimensionality is fixed per model and must match what was stored
// for existing chunks of the same collection.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// langchainEmbedder adapts a langchaingo embedder to the Embedder contract.
type langchainEmbedder struct {
	impl *embeddings.EmbedderImpl
}

func (e *langchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.impl.EmbedQuery(ctx, text)
}

func (e *langchainEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.impl.EmbedDocuments(ctx, texts)
}

// NewClientEmbedder picks the backend from the config: a configured API key
// means an OpenAI-compatible endpoint, otherwise local ollama.
func NewClientEmbedder(llmConfig *config.LLMConfig, model string) (Embedder, error) {
	if llmConfig.Key != "" {
		return NewOpenAIEmbedder(llmConfig.Key, llmConfig.BaseURL, model)
	}
	return NewOllamaEmbedder(llmConfig, model)
}

// NewOllamaEmbedder builds an embedder backed by a local ollama server.
func NewOllamaEmbedder(llmConfig *config.LLMConfig, model string) (Embedder, error) {
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", model).Msg("initializing ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &langchainEmbedder{impl: impl}, nil
}

// NewOpenAIEmbedder builds an embedder for an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(key, baseURL, model string) (Embedder, error) {
	llm, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(strings.TrimPrefix(key, "Bearer ")),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, err
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, err
	}
	return &langchainEmbedder{impl: impl}, nil
}
