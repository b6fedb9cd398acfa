package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderGroq        ProviderType = "groq"
	ProviderOpenAI      ProviderType = "openai"
	ProviderOpenRouter  ProviderType = "openrouter"
	ProviderOllama      ProviderType = "ollama"
	ProviderHuggingFace ProviderType = "huggingface"
)

// LoaderMode selects how pages are fetched.
type LoaderMode string

const (
	// LoaderHTTP fetches raw HTML with a plain HTTP client.
	LoaderHTTP LoaderMode = "http"
	// LoaderBrowser renders pages in headless Chrome so script-driven
	// content is captured.
	LoaderBrowser LoaderMode = "browser"
)

// StoreType selects the vector store backend.
type StoreType string

const (
	StoreChromem StoreType = "chromem"
	StoreQdrant  StoreType = "qdrant"
)

// Config is the top-level propwise configuration, corresponding to .propwise.yml.
type Config struct {
	Provider            ProviderType      `yaml:"provider" koanf:"provider"`
	Model               string            `yaml:"model" koanf:"model"`
	BaseURL             string            `yaml:"base_url" koanf:"base_url"`
	Temperature         float64           `yaml:"temperature" koanf:"temperature"`
	MaxTokens           int               `yaml:"max_tokens" koanf:"max_tokens"`
	EmbeddingProvider   ProviderType      `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string            `yaml:"embedding_model" koanf:"embedding_model"`
	EmbeddingDimensions int               `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	DataDir             string            `yaml:"data_dir" koanf:"data_dir"`
	Collection          string            `yaml:"collection" koanf:"collection"`
	TopK                int               `yaml:"top_k" koanf:"top_k"`
	ChunkSize           int               `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap        int               `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	RateLimitRPM        int               `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Loader              LoaderConfig      `yaml:"loader" koanf:"loader"`
	VectorStore         VectorStoreConfig `yaml:"vector_store" koanf:"vector_store"`
	Timeouts            TimeoutConfig     `yaml:"timeouts" koanf:"timeouts"`
}

// LoaderConfig controls page fetching.
type LoaderConfig struct {
	Mode        LoaderMode `yaml:"mode" koanf:"mode"`
	Concurrency int        `yaml:"concurrency" koanf:"concurrency"`
	TimeoutSecs int        `yaml:"timeout_secs" koanf:"timeout_secs"`
	UserAgent   string     `yaml:"user_agent" koanf:"user_agent"`
	Exclude     []string   `yaml:"exclude" koanf:"exclude"`
	// PerHostRPS caps requests per second to any one host. Zero disables it.
	PerHostRPS  float64    `yaml:"per_host_rps" koanf:"per_host_rps"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Type   StoreType    `yaml:"type" koanf:"type"`
	Qdrant QdrantConfig `yaml:"qdrant" koanf:"qdrant"`
}

// QdrantConfig holds connection details for a Qdrant gRPC endpoint.
type QdrantConfig struct {
	Host   string `yaml:"host" koanf:"host"`
	Port   int    `yaml:"port" koanf:"port"`
	APIKey string `yaml:"api_key" koanf:"api_key"`
}

// TimeoutConfig bounds calls to the external model services.
type TimeoutConfig struct {
	EmbedSecs    int `yaml:"embed_secs" koanf:"embed_secs"`
	GenerateSecs int `yaml:"generate_secs" koanf:"generate_secs"`
}
