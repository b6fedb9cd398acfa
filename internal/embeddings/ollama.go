package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

// ollamaBatchSize bounds how many texts go into one /api/embed call.
const ollamaBatchSize = 32

// OllamaEmbedder generates embeddings using a local Ollama instance.
type OllamaEmbedder struct {
	client     *api.Client
	model      string
	dimensions int
}

// NewOllamaEmbedder creates a new Ollama embedder.
// model is the Ollama model name (e.g. "nomic-embed-text").
// dimensions is the output dimension count for the model.
// An empty baseURL uses OLLAMA_HOST or the default local address.
func NewOllamaEmbedder(model string, dimensions int, baseURL string) (*OllamaEmbedder, error) {
	client, err := newOllamaClient(baseURL)
	if err != nil {
		return nil, err
	}
	return &OllamaEmbedder{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}, nil
}

func newOllamaClient(baseURL string) (*api.Client, error) {
	if baseURL == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		return client, nil
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}
	return api.NewClient(u, http.DefaultClient), nil
}

func (e *OllamaEmbedder) Name() string {
	return "ollama/" + e.model
}

func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += ollamaBatchSize {
		batch := texts[i:min(i+ollamaBatchSize, len(texts))]

		resp, err := e.client.Embed(ctx, &api.EmbedRequest{
			Model: e.model,
			Input: batch,
		})
		if err != nil {
			return nil, fmt.Errorf("ollama embed request failed: %w", err)
		}
		if err := checkResult("ollama", resp.Embeddings, len(batch), e.dimensions); err != nil {
			return nil, err
		}
		results = append(results, resp.Embeddings...)
	}
	return results, nil
}
