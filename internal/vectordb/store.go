package vectordb

import "context"

// VectorStore manages a single named collection of embedding records.
type VectorStore interface {
	// Reset drops the collection if it exists. An absent collection is not
	// an error.
	Reset(ctx context.Context) error

	// Add inserts records, creating the collection on first use. Re-adding
	// an existing ID replaces that record.
	Add(ctx context.Context, records []Record) error

	// Search returns up to k records most similar to vector, highest
	// similarity first. Equal similarities keep insertion order; a remote
	// backend only guarantees this for ties among the candidates it ranks
	// (QdrantStore fetches k plus a margin). An empty or absent collection
	// yields no results and no error.
	Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// Exists reports whether the collection is present.
	Exists(ctx context.Context) (bool, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases any connection held by the store.
	Close() error
}
