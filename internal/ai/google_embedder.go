package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleEmbedder returns embedding vectors from Google Generative AI
// (text-embedding-004 by default).
type GoogleEmbedder struct {
	client *genai.Client
	model  string
}

func NewGoogleEmbedder(ctx context.Context, apiKey, model string) (*GoogleEmbedder, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleEmbedder{client: client, model: model}, nil
}

func (e *GoogleEmbedder) Name() string { return "google-" + e.model }

func (e *GoogleEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.client.EmbeddingModel(e.model)

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		resp, err := model.EmbedContent(ctx, genai.Text(t))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		// genai SDK returns []float32 for Embedding.Values
		out = append(out, resp.Embedding.Values)
	}
	return out, nil
}

// Close the client
func (e *GoogleEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
