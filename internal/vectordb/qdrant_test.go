package vectordb

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

// fakeCollections serves List and Delete from memory. Other methods panic
// through the nil embedded client.
type fakeCollections struct {
	qdrant.CollectionsClient
	names   []string
	deleted []string
}

func (f *fakeCollections) List(_ context.Context, _ *qdrant.ListCollectionsRequest, _ ...grpc.CallOption) (*qdrant.ListCollectionsResponse, error) {
	resp := &qdrant.ListCollectionsResponse{}
	for _, n := range f.names {
		resp.Collections = append(resp.Collections, &qdrant.CollectionDescription{Name: n})
	}
	return resp, nil
}

func (f *fakeCollections) Delete(_ context.Context, in *qdrant.DeleteCollection, _ ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error) {
	f.deleted = append(f.deleted, in.GetCollectionName())
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}

// fakePoints answers Search with the first Limit of its points, in the
// order given.
type fakePoints struct {
	qdrant.PointsClient
	points []*qdrant.ScoredPoint
	limit  uint64
}

func (f *fakePoints) Search(_ context.Context, in *qdrant.SearchPoints, _ ...grpc.CallOption) (*qdrant.SearchResponse, error) {
	f.limit = in.GetLimit()
	n := min(int(in.GetLimit()), len(f.points))
	return &qdrant.SearchResponse{Result: f.points[:n]}, nil
}

func scored(source string, score float32, seq int64) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Id:    &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: uuid.NewString()}},
		Score: score,
		Payload: map[string]*qdrant.Value{
			keyText:   stringValue("text " + source),
			keySource: stringValue(source),
			keySeq:    intValue(seq),
		},
	}
}

func newFakeQdrant(t *testing.T, cols *fakeCollections, pts *fakePoints) *QdrantStore {
	t.Helper()
	s, err := NewQdrantStore("localhost", 6334, "", "test", 2)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.collections = cols
	s.points = pts
	return s
}

func TestQdrantSearchOrdersTiesAcrossTheCutoff(t *testing.T) {
	// The server returns equal scores in arbitrary order; the earliest
	// inserted ones sit beyond position k.
	pts := &fakePoints{points: []*qdrant.ScoredPoint{
		scored("top", 0.9, 50),
		scored("late", 0.5, 40),
		scored("later", 0.5, 30),
		scored("early", 0.5, 2),
		scored("earliest", 0.5, 1),
	}}
	s := newFakeQdrant(t, &fakeCollections{names: []string{"test"}}, pts)

	results, err := s.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3+searchMargin), pts.limit)

	var sources []string
	for _, r := range results {
		sources = append(sources, r.Record.Metadata.Source)
	}
	assert.Equal(t, []string{"top", "earliest", "early"}, sources)
}

func TestQdrantSearchTrimsToK(t *testing.T) {
	pts := &fakePoints{}
	for i := 0; i < 10; i++ {
		pts.points = append(pts.points, scored(fmt.Sprintf("s%d", i), float32(10-i)/10, int64(i)))
	}
	s := newFakeQdrant(t, &fakeCollections{names: []string{"test"}}, pts)

	results, err := s.Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "s0", results[0].Record.Metadata.Source)
	assert.Equal(t, "s3", results[3].Record.Metadata.Source)
}

func TestQdrantSearchAbsentCollection(t *testing.T) {
	pts := &fakePoints{points: []*qdrant.ScoredPoint{scored("a", 1, 1)}}
	s := newFakeQdrant(t, &fakeCollections{}, pts)

	results, err := s.Search(context.Background(), []float32{1, 0}, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, pts.limit, "search must not reach the server")
}

func TestQdrantReset(t *testing.T) {
	cols := &fakeCollections{}
	s := newFakeQdrant(t, cols, &fakePoints{})

	require.NoError(t, s.Reset(context.Background()))
	assert.Empty(t, cols.deleted)

	cols.names = []string{"other", "test"}
	require.NoError(t, s.Reset(context.Background()))
	assert.Equal(t, []string{"test"}, cols.deleted)
}

func TestQdrantPointPayload(t *testing.T) {
	s, err := NewQdrantStore("localhost", 6334, "", "test", 2)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	id := uuid.NewString()
	p := s.toPoint(Record{
		ID:       id,
		Vector:   []float32{0.5, 0.5},
		Text:     "Condo sales rose.",
		Metadata: Metadata{Source: "https://a.example", Title: "Condos", Index: 1},
	})
	assert.Equal(t, id, p.GetId().GetUuid())
	assert.Equal(t, []float32{0.5, 0.5}, p.GetVectors().GetVector().GetData())

	got := fromPayload(p.GetId(), p.GetPayload())
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Condo sales rose.", got.Text)
	assert.Equal(t, Metadata{Source: "https://a.example", Title: "Condos", Index: 1}, got.Metadata)
}

func TestQdrantNonUUIDIDsAreMapped(t *testing.T) {
	s, err := NewQdrantStore("localhost", 6334, "", "test", 2)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p1 := s.toPoint(Record{ID: "chunk-1", Vector: []float32{1, 0}})
	p2 := s.toPoint(Record{ID: "chunk-1", Vector: []float32{0, 1}})

	// The same caller id always maps to the same point, so re-adding upserts.
	assert.Equal(t, p1.GetId().GetUuid(), p2.GetId().GetUuid())
	_, err = uuid.Parse(p1.GetId().GetUuid())
	assert.NoError(t, err)

	assert.Equal(t, "chunk-1", fromPayload(p1.GetId(), p1.GetPayload()).ID)

	// Insertion sequence increases per point.
	assert.Less(t, payloadInt(p1.GetPayload(), keySeq), payloadInt(p2.GetPayload(), keySeq))
}

func TestNewQdrantStoreRequiresCollection(t *testing.T) {
	_, err := NewQdrantStore("localhost", 6334, "", "", 2)
	assert.Error(t, err)
}
