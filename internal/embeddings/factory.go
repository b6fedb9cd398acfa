package embeddings

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/propwise/internal/config"
)

// NewFromConfig creates the Embedder selected by cfg. Credentials are read
// from the environment variable returned by config.APIKeyEnvVar.
func NewFromConfig(cfg *config.Config) (Embedder, error) {
	model := cfg.EmbeddingModel
	dims := cfg.EmbeddingDimensions
	preset := config.GetPreset(cfg.EmbeddingProvider)
	if model == "" {
		model = preset.EmbeddingModel
	}
	if model == "" {
		return nil, fmt.Errorf("embedding_model is required for %s", cfg.EmbeddingProvider)
	}
	if dims <= 0 {
		dims = preset.Dimensions
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		envVar := config.APIKeyEnvVar(config.ProviderOpenAI)
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s environment variable is required for OpenAI embeddings", ErrMissingAPIKey, envVar)
		}
		return NewOpenAIEmbedder(apiKey, "", OpenAIModel(model), dims), nil
	case config.ProviderOllama:
		return NewOllamaEmbedder(model, dims, "")
	case config.ProviderHuggingFace:
		envVar := config.APIKeyEnvVar(config.ProviderHuggingFace)
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s environment variable is required for Hugging Face embeddings", ErrMissingAPIKey, envVar)
		}
		return NewHuggingFaceEmbedder(apiKey, model, dims, ""), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}
