package vectordb

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"net"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	keyText = "text"
	// keyRecordID holds the caller's id when it is not itself a UUID.
	keyRecordID = "record_id"
	upsertBatch = 100
	// searchMargin extra candidates are fetched so that equal scores around
	// the k-th result can still be ordered by insertion before trimming.
	searchMargin = 16
)

// QdrantStore implements VectorStore on a Qdrant server over gRPC.
type QdrantStore struct {
	conn        *grpc.ClientConn
	collections qdrant.CollectionsClient
	points      qdrant.PointsClient
	name        string
	apiKey      string

	mu   sync.Mutex
	dims int

	seq atomic.Int64
}

// NewQdrantStore connects to the Qdrant gRPC endpoint at host:port. The
// connection is established lazily by gRPC on first use.
func NewQdrantStore(host string, port int, apiKey, collection string, dims int) (*QdrantStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}

	s := &QdrantStore{
		conn:        conn,
		collections: qdrant.NewCollectionsClient(conn),
		points:      qdrant.NewPointsClient(conn),
		name:        collection,
		apiKey:      apiKey,
		dims:        dims,
	}
	s.seq.Store(time.Now().UnixNano())
	return s, nil
}

func (s *QdrantStore) withAuth(ctx context.Context) context.Context {
	if s.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", s.apiKey)
}

func (s *QdrantStore) Exists(ctx context.Context) (bool, error) {
	resp, err := s.collections.List(s.withAuth(ctx), &qdrant.ListCollectionsRequest{})
	if err != nil {
		return false, fmt.Errorf("list qdrant collections: %w", err)
	}
	for _, col := range resp.GetCollections() {
		if col.GetName() == s.name {
			return true, nil
		}
	}
	return false, nil
}

func (s *QdrantStore) Reset(ctx context.Context) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		log.Printf("vectordb: qdrant collection %q does not exist, nothing to reset", s.name)
		return nil
	}
	_, err = s.collections.Delete(s.withAuth(ctx), &qdrant.DeleteCollection{CollectionName: s.name})
	if err != nil {
		return fmt.Errorf("delete qdrant collection %q: %w", s.name, err)
	}
	return nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context, dims int) error {
	exists, err := s.Exists(ctx)
	if err != nil || exists {
		return err
	}
	_, err = s.collections.Create(s.withAuth(ctx), &qdrant.CreateCollection{
		CollectionName: s.name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(dims),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %q: %w", s.name, err)
	}
	return nil
}

func (s *QdrantStore) Add(ctx context.Context, records []Record) error {
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

	if err := s.ensureCollection(ctx, width); err != nil {
		return err
	}

	wait := true
	for i := 0; i < len(records); i += upsertBatch {
		batch := records[i:min(i+upsertBatch, len(records))]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, r := range batch {
			points[j] = s.toPoint(r)
		}
		_, err := s.points.Upsert(s.withAuth(ctx), &qdrant.UpsertPoints{
			CollectionName: s.name,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("upsert qdrant points: %w", err)
		}
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	s.mu.Lock()
	dims := s.dims
	s.mu.Unlock()
	if err := checkDims(dims, vector); err != nil {
		return nil, err
	}

	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	resp, err := s.points.Search(s.withAuth(ctx), &qdrant.SearchPoints{
		CollectionName: s.name,
		Vector:         vector,
		Limit:          uint64(k + searchMargin),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search qdrant: %w", err)
	}

	points := resp.GetResult()
	slices.SortStableFunc(points, func(a, b *qdrant.ScoredPoint) int {
		if c := cmp.Compare(b.GetScore(), a.GetScore()); c != 0 {
			return c
		}
		return cmp.Compare(payloadInt(a.GetPayload(), keySeq), payloadInt(b.GetPayload(), keySeq))
	})
	points = points[:min(k, len(points))]

	out := make([]SearchResult, len(points))
	for i, p := range points {
		out[i] = SearchResult{
			Record:     fromPayload(p.GetId(), p.GetPayload()),
			Similarity: p.GetScore(),
		}
	}
	return out, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exists, err := s.Exists(ctx)
	if err != nil || !exists {
		return 0, err
	}
	exact := true
	resp, err := s.points.Count(s.withAuth(ctx), &qdrant.CountPoints{
		CollectionName: s.name,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("count qdrant points: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (s *QdrantStore) Close() error {
	return s.conn.Close()
}

func (s *QdrantStore) toPoint(r Record) *qdrant.PointStruct {
	payload := map[string]*qdrant.Value{
		keyText:   stringValue(r.Text),
		keySource: stringValue(r.Metadata.Source),
		keyIndex:  intValue(int64(r.Metadata.Index)),
		keySeq:    intValue(s.seq.Add(1)),
	}
	if r.Metadata.Title != "" {
		payload[keyTitle] = stringValue(r.Metadata.Title)
	}

	id, err := uuid.Parse(r.ID)
	if err != nil {
		// Qdrant only accepts UUID or integer ids.
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(r.ID))
		payload[keyRecordID] = stringValue(r.ID)
	}

	return &qdrant.PointStruct{
		Id: &qdrant.PointId{
			PointIdOptions: &qdrant.PointId_Uuid{Uuid: id.String()},
		},
		Vectors: &qdrant.Vectors{
			VectorsOptions: &qdrant.Vectors_Vector{
				Vector: &qdrant.Vector{Data: r.Vector},
			},
		},
		Payload: payload,
	}
}

func fromPayload(id *qdrant.PointId, payload map[string]*qdrant.Value) Record {
	recordID := id.GetUuid()
	if v, ok := payload[keyRecordID]; ok {
		recordID = v.GetStringValue()
	}
	return Record{
		ID:   recordID,
		Text: payload[keyText].GetStringValue(),
		Metadata: Metadata{
			Source: payload[keySource].GetStringValue(),
			Title:  payload[keyTitle].GetStringValue(),
			Index:  int(payloadInt(payload, keyIndex)),
		},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(n int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: n}}
}

func payloadInt(payload map[string]*qdrant.Value, key string) int64 {
	return payload[key].GetIntegerValue()
}
