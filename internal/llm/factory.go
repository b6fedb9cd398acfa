package llm

import (
	"fmt"
	"os"

	"github.com/ziadkadry99/propwise/internal/config"
)

// NewFromConfig creates the generation Provider selected by cfg, wrapped in
// a rate limiter when cfg.RateLimitRPM is positive. Hosted providers read
// their key from the variable named by config.APIKeyEnvVar.
func NewFromConfig(cfg *config.Config) (Provider, error) {
	model := cfg.Model
	if model == "" {
		model = config.GetPreset(cfg.Provider).Model
	}

	var p Provider
	switch cfg.Provider {
	case config.ProviderGroq, config.ProviderOpenAI, config.ProviderOpenRouter:
		envVar := config.APIKeyEnvVar(cfg.Provider)
		apiKey := os.Getenv(envVar)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s environment variable is not set", ErrMissingAPIKey, envVar)
		}
		p = NewOpenAIProvider(string(cfg.Provider), apiKey, cfg.ResolvedBaseURL(), model)

	case config.ProviderOllama:
		op, err := NewOllamaProvider(cfg.BaseURL, model)
		if err != nil {
			return nil, err
		}
		p = op

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}

	return NewRateLimitedProvider(p, cfg.RateLimitRPM), nil
}
