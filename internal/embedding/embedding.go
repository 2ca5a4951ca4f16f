package embedding

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/myckhel/course-pilot/internal/config"
)

// Embedder is the embedding capability consumed by the index manager and
// the answering engine. langchaingo's EmbedderImpl satisfies it; tests
// supply fakes.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates an embedder against an OpenAI-compatible endpoint
func NewEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewOllamaEmbedder creates an embedder against a local ollama server
func NewOllamaEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}
