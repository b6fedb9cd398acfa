package embeddings

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned when a provider needs a credential that is
// not set.
var ErrMissingAPIKey = errors.New("missing api key")

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// checkResult verifies a provider returned one vector per input, each of
// the expected width. want <= 0 skips the width check.
func checkResult(provider string, vecs [][]float32, n, want int) error {
	if len(vecs) != n {
		return fmt.Errorf("%s returned %d embeddings, expected %d", provider, len(vecs), n)
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("%s returned an empty embedding at index %d", provider, i)
		}
		if want > 0 && len(v) != want {
			return fmt.Errorf("%s returned %d dimensions at index %d, expected %d", provider, len(v), i, want)
		}
	}
	return nil
}
