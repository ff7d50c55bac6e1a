package ai

import (
	"context"
	"fmt"

	"csv-rag-service/internal/config"
	"csv-rag-service/internal/telemetry"
)

// Embedder turns texts into vectors. All vectors produced by one Embedder
// share the same dimension, and Name identifies the embedding space so a
// collection can refuse vectors from a different function.
type Embedder interface {
	Name() string
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder builds the embedding function selected by EMBEDDINGS_PROVIDER.
// Remote providers are wrapped with a circuit breaker and a rate limiter.
func NewEmbedder(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "local", "":
		return NewHashingEmbedder(cfg.EmbeddingDimensions), nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("missing OPENAI_API_KEY for embeddings")
		}
		inner := NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingsModel)
		return NewGuardedEmbedder(inner, cfg.EmbeddingsRPM, metrics), nil

	case "google":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
		}
		inner, err := NewGoogleEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
		if err != nil {
			return nil, err
		}
		return NewGuardedEmbedder(inner, cfg.EmbeddingsRPM, metrics), nil

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}
