package vectordb

import (
	"errors"
	"fmt"
)

// ErrDimensionMismatch is returned when a vector's width differs from the
// store's configured dimensionality.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Record is one embedded chunk stored in the vector DB.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

// Metadata is the payload stored alongside each vector.
type Metadata struct {
	Source string
	Title  string
	// Index is the chunk's position within its source document.
	Index int
}

// SearchResult pairs a record with its similarity to the query.
type SearchResult struct {
	Record     Record
	Similarity float32
}

// Sources returns the source URL of every result in order, including
// repeats.
func Sources(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.Metadata.Source
	}
	return out
}

func checkDims(want int, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), want)
	}
	return nil
}

// checkBatch ensures every record has an id and all vectors share one width.
// It returns that width.
func checkBatch(want int, records []Record) (int, error) {
	for i, r := range records {
		if r.ID == "" {
			return 0, fmt.Errorf("record %d has an empty id", i)
		}
		if err := checkDims(want, r.Vector); err != nil {
			return 0, fmt.Errorf("record %s: %w", r.ID, err)
		}
		if want <= 0 {
			want = len(r.Vector)
		}
	}
	return want, nil
}
