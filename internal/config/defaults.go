package config

import "path/filepath"

// ProviderPreset describes the default model and endpoint for a provider.
type ProviderPreset struct {
	Model          string
	BaseURL        string
	EmbeddingModel string
	Dimensions     int
}

// providerPresets maps each provider to its default model choices.
var providerPresets = map[ProviderType]ProviderPreset{
	ProviderGroq: {
		Model:   "llama-3.3-70b-versatile",
		BaseURL: "https://api.groq.com/openai/v1",
	},
	ProviderOpenAI: {
		Model:          "gpt-4o-mini",
		BaseURL:        "https://api.openai.com/v1",
		EmbeddingModel: "text-embedding-3-small",
		Dimensions:     1536,
	},
	ProviderOpenRouter: {
		Model:   "meta-llama/llama-3.3-70b-instruct",
		BaseURL: "https://openrouter.ai/api/v1",
	},
	ProviderOllama: {
		Model:          "llama3.2",
		BaseURL:        "http://localhost:11434",
		EmbeddingModel: "nomic-embed-text",
		Dimensions:     768,
	},
	ProviderHuggingFace: {
		EmbeddingModel: "sentence-transformers/all-MiniLM-L6-v2",
		Dimensions:     384,
	},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:            ProviderGroq,
		Model:               "llama-3.3-70b-versatile",
		Temperature:         0.2,
		MaxTokens:           500,
		EmbeddingProvider:   ProviderHuggingFace,
		EmbeddingModel:      "sentence-transformers/all-MiniLM-L6-v2",
		EmbeddingDimensions: 384,
		DataDir:             ".propwise",
		Collection:          "real_estate",
		TopK:                4,
		ChunkSize:           1000,
		ChunkOverlap:        100,
		RateLimitRPM:        30,
		Loader: LoaderConfig{
			Mode:        LoaderHTTP,
			Concurrency: 3,
			TimeoutSecs: 30,
			UserAgent:   "Mozilla/5.0 (compatible; propwise/1.0)",
			PerHostRPS:  2,
		},
		VectorStore: VectorStoreConfig{
			Type: StoreChromem,
			Qdrant: QdrantConfig{
				Host: "localhost",
				Port: 6334,
			},
		},
		Timeouts: TimeoutConfig{
			EmbedSecs:    60,
			GenerateSecs: 90,
		},
	}
}

// GetPreset returns the preset for the given provider.
// Returns the Groq preset if the provider is unknown.
func GetPreset(provider ProviderType) ProviderPreset {
	if preset, ok := providerPresets[provider]; ok {
		return preset
	}
	return providerPresets[ProviderGroq]
}

// VectorStoreDir is where the chromem collection is persisted.
func (c *Config) VectorStoreDir() string {
	return filepath.Join(c.DataDir, "vectorstore")
}

// DatabasePath is the SQLite file holding the ingestion run ledger.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "propwise.db")
}

// ResolvedBaseURL returns the configured base URL or the provider default.
func (c *Config) ResolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return GetPreset(c.Provider).BaseURL
}
