package rag

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ziadkadry99/propwise/internal/chunker"
	"github.com/ziadkadry99/propwise/internal/config"
	"github.com/ziadkadry99/propwise/internal/embeddings"
	"github.com/ziadkadry99/propwise/internal/llm"
	"github.com/ziadkadry99/propwise/internal/loader"
	"github.com/ziadkadry99/propwise/internal/vectordb"
)

// ConfigFactory returns a Factory that builds every component from cfg.
// onLoad, if not nil, receives per-URL loading progress.
func ConfigFactory(cfg *config.Config, onLoad loader.ProgressFunc) Factory {
	return func(ctx context.Context) (*Components, error) {
		gen, err := llm.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: answer generator: %w", ErrConfiguration, err)
		}

		emb, err := embeddings.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: embeddings: %w", ErrConfiguration, err)
		}

		ld, err := newLoader(cfg, onLoad)
		if err != nil {
			return nil, fmt.Errorf("%w: loader: %w", ErrConfiguration, err)
		}

		sp, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("%w: chunker: %w", ErrConfiguration, err)
		}

		store, err := NewStoreFromConfig(cfg, emb)
		if err != nil {
			return nil, fmt.Errorf("%w: vector store: %w", ErrConfiguration, err)
		}

		return &Components{
			Loader:    ld,
			Splitter:  sp,
			Embedder:  emb,
			Store:     store,
			Generator: gen,
		}, nil
	}
}

// OptionsFromConfig maps the retrieval and timeout settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		TopK:            cfg.TopK,
		Temperature:     cfg.Temperature,
		MaxTokens:       cfg.MaxTokens,
		EmbedTimeout:    time.Duration(cfg.Timeouts.EmbedSecs) * time.Second,
		GenerateTimeout: time.Duration(cfg.Timeouts.GenerateSecs) * time.Second,
	}
}

// NewStoreFromConfig opens the configured vector store backend.
func NewStoreFromConfig(cfg *config.Config, emb embeddings.Embedder) (vectordb.VectorStore, error) {
	switch cfg.VectorStore.Type {
	case config.StoreChromem, "":
		return vectordb.NewChromemStore(cfg.VectorStoreDir(), cfg.Collection, emb.Dimensions(), embeddings.ToChromemFunc(emb))
	case config.StoreQdrant:
		q := cfg.VectorStore.Qdrant
		apiKey := q.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("QDRANT_API_KEY")
		}
		return vectordb.NewQdrantStore(q.Host, q.Port, apiKey, cfg.Collection, emb.Dimensions())
	default:
		return nil, fmt.Errorf("unsupported vector store %q", cfg.VectorStore.Type)
	}
}

func newLoader(cfg *config.Config, onLoad loader.ProgressFunc) (*loader.Loader, error) {
	timeout := time.Duration(cfg.Loader.TimeoutSecs) * time.Second

	var f loader.Fetcher
	switch cfg.Loader.Mode {
	case config.LoaderBrowser:
		f = loader.NewBrowserFetcher(cfg.Loader.UserAgent)
	case config.LoaderHTTP, "":
		f = loader.NewHTTPFetcher(timeout, cfg.Loader.UserAgent)
	default:
		return nil, fmt.Errorf("unsupported loader mode %q", cfg.Loader.Mode)
	}

	return loader.New(f, loader.Options{
		Concurrency: cfg.Loader.Concurrency,
		Timeout:     timeout,
		Exclude:     cfg.Loader.Exclude,
		PerHostRPS:  cfg.Loader.PerHostRPS,
		OnProgress:  onLoad,
	})
}
