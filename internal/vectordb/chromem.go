package vectordb

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"runtime"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// Metadata keys used in chromem documents and qdrant payloads.
const (
	keySource = "source"
	keyTitle  = "title"
	keyIndex  = "chunk_index"
	keySeq    = "seq"
)

// ChromemStore implements VectorStore using chromem-go. With a directory it
// persists every document under that directory; without one it is purely
// in-memory.
type ChromemStore struct {
	db        *chromem.DB
	name      string
	embedFunc chromem.EmbeddingFunc

	mu   sync.Mutex
	dims int

	// seq orders records by insertion, across process restarts.
	seq atomic.Int64
}

// NewChromemStore opens (or creates) a chromem database. dir == "" keeps
// everything in memory. dims > 0 fixes the vector width; otherwise the
// first added batch sets it. embedFunc is only used by chromem for records
// added without a vector and may be nil.
func NewChromemStore(dir, collection string, dims int, embedFunc chromem.EmbeddingFunc) (*ChromemStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	var db *chromem.DB
	if dir == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dir, true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", dir, err)
		}
	}

	s := &ChromemStore{
		db:        db,
		name:      collection,
		embedFunc: embedFunc,
		dims:      dims,
	}
	s.seq.Store(time.Now().UnixNano())
	return s, nil
}

func (s *ChromemStore) collection() *chromem.Collection {
	return s.db.GetCollection(s.name, s.embedFunc)
}

func (s *ChromemStore) Reset(_ context.Context) error {
	if s.collection() == nil {
		log.Printf("vectordb: collection %q does not exist, nothing to reset", s.name)
		return nil
	}
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection %q: %w", s.name, err)
	}
	return nil
}

func (s *ChromemStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	width, err := checkBatch(s.dims, records)
	if err == nil && s.dims == 0 {
		s.dims = width
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	col, err := s.db.GetOrCreateCollection(s.name, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection %q: %w", s.name, err)
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Content:   r.Text,
			Embedding: r.Vector,
			Metadata:  metadataToMap(r.Metadata, s.seq.Add(1)),
		}
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem add: %w", err)
	}
	return nil
}

func (s *ChromemStore) Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	s.mu.Lock()
	dims := s.dims
	s.mu.Unlock()
	if err := checkDims(dims, vector); err != nil {
		return nil, err
	}

	col := s.collection()
	if col == nil {
		return nil, nil
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	// Rank the whole collection so equal scores can be ordered by insertion.
	results, err := col.QueryEmbedding(ctx, vector, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	slices.SortStableFunc(results, func(a, b chromem.Result) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(seqOf(a.Metadata), seqOf(b.Metadata))
	})
	if len(results) > k {
		results = results[:k]
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Record: Record{
				ID:       r.ID,
				Vector:   r.Embedding,
				Text:     r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

func (s *ChromemStore) Exists(_ context.Context) (bool, error) {
	return s.collection() != nil, nil
}

func (s *ChromemStore) Count(_ context.Context) (int, error) {
	col := s.collection()
	if col == nil {
		return 0, nil
	}
	return col.Count(), nil
}

// Close is a no-op; persistent documents are written as they are added.
func (s *ChromemStore) Close() error { return nil }

func metadataToMap(m Metadata, seq int64) map[string]string {
	md := map[string]string{
		keySource: m.Source,
		keyIndex:  strconv.Itoa(m.Index),
		keySeq:    strconv.FormatInt(seq, 10),
	}
	if m.Title != "" {
		md[keyTitle] = m.Title
	}
	return md
}

func mapToMetadata(m map[string]string) Metadata {
	idx, _ := strconv.Atoi(m[keyIndex])
	return Metadata{
		Source: m[keySource],
		Title:  m[keyTitle],
		Index:  idx,
	}
}

func seqOf(m map[string]string) int64 {
	n, _ := strconv.ParseInt(m[keySeq], 10, 64)
	return n
}
