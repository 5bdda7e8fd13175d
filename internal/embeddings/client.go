// Package embeddings provides text embedding providers and vector helpers.
package embeddings

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single embedding request.
const DefaultTimeout = 3 * time.Second

// Embedder is the interface for embedding providers (Ollama, OpenAI-compatible).
type Embedder interface {
	// Embed generates an embedding for a single text string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the model identifier used for staleness checks.
	Model() string

	// Health checks if the service is available and the model is loaded.
	Health(ctx context.Context) error
}

// NewEmbedder creates a new embedding client based on the provider type.
// Supported providers: "ollama", "openai".
func NewEmbedder(provider, baseURL, apiKey, model string) (Embedder, error) {
	switch provider {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if model == "" {
			model = "nomic-embed-text"
		}
		return NewOllamaClient(baseURL, model), nil
	case "openai":
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		if model == "" {
			model = "text-embedding-3-small"
		}
		return NewOpenAIClient(baseURL, apiKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: ollama, openai)", provider)
	}
}
