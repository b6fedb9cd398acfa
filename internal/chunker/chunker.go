// Package chunker splits loaded documents into bounded, overlapping chunks.
//
// Splitting is recursive: the text is cut on the first separator that
// occurs in it, and any piece still larger than the chunk size is cut again
// on the remaining separators. Small pieces are merged back together up to
// the chunk size, carrying a tail of the previous chunk forward as overlap.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ziadkadry99/propwise/internal/loader"
)

// Defaults used by the ingest pipeline.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// DefaultSeparators prefers paragraph breaks, then line breaks, then
// sentence ends, then spaces.
var DefaultSeparators = []string{"\n\n", "\n", ".", " "}

// Chunk is one segment of a source document.
type Chunk struct {
	ID        string
	Text      string
	SourceURL string
	// Index is the position of the chunk within its document.
	Index int
}

// Splitter splits text into chunks of at most ChunkSize characters.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string

	newID func() string
}

// New returns a Splitter with the default separators.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{
		ChunkSize:    size,
		ChunkOverlap: overlap,
		Separators:   DefaultSeparators,
		newID:        uuid.NewString,
	}, nil
}

// ErrNoSeparators is returned by Validate when the separator list is empty.
var ErrNoSeparators = errors.New("at least one separator is required")

// Validate checks the splitter parameters.
func (s *Splitter) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", s.ChunkSize, s.ChunkOverlap)
	}
	if len(s.Separators) == 0 {
		return ErrNoSeparators
	}
	return nil
}

// Split chunks every document in order. Each chunk inherits the source URL
// of its document and gets a fresh unique ID.
func (s *Splitter) Split(docs []loader.Document) []Chunk {
	newID := s.newID
	if newID == nil {
		newID = uuid.NewString
	}
	var chunks []Chunk
	for _, doc := range docs {
		for i, text := range s.SplitText(doc.Text) {
			chunks = append(chunks, Chunk{
				ID:        newID(),
				Text:      text,
				SourceURL: doc.SourceURL,
				Index:     i,
			})
		}
	}
	return chunks
}

// SplitText splits a single text. The result is deterministic for a given
// text and parameters.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.Separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	var sep string
	var rest []string
	if len(separators) > 0 {
		sep = separators[len(separators)-1]
	}
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var out, pending []string
	for _, piece := range splitKeepSeparator(text, sep) {
		if length(piece) < s.ChunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			// No finer separator left; emit the oversized piece as is.
			if trimmed := strings.TrimSpace(piece); trimmed != "" {
				out = append(out, trimmed)
			}
			continue
		}
		out = append(out, s.split(piece, rest)...)
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending)...)
	}
	return out
}

// merge joins small pieces into chunks no longer than ChunkSize. When a
// chunk is emitted, pieces are dropped from its front until what remains
// fits within ChunkOverlap; that remainder starts the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var out, window []string
	total := 0
	for _, p := range pieces {
		n := length(p)
		if total+n > s.ChunkSize && len(window) > 0 {
			if doc := join(window); doc != "" {
				out = append(out, doc)
			}
			for total > s.ChunkOverlap || (total+n > s.ChunkSize && total > 0) {
				total -= length(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	if doc := join(window); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeepSeparator cuts text on sep, attaching each separator to the start
// of the piece that follows it. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		var out []string
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

// length measures text in characters rather than bytes.
func length(s string) int {
	return utf8.RuneCountInString(s)
}
