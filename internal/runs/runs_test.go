package runs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/propwise/internal/db"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func TestStartAndFinishSuccess(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	run, err := store.Start(ctx, []string{"https://a.example", "https://b.example"}, "huggingface/all-MiniLM-L6-v2")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, StatusRunning, run.Status)

	require.NoError(t, store.Finish(ctx, run.ID, Outcome{
		Documents: 1,
		Chunks:    7,
		Failures:  []Failure{{URL: "https://b.example", Error: "unexpected status 404"}},
	}))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, got.Status)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, got.URLs)
	assert.Equal(t, 1, got.Documents)
	assert.Equal(t, 7, got.Chunks)
	assert.Equal(t, "huggingface/all-MiniLM-L6-v2", got.EmbeddingModel)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.False(t, got.FinishedAt.Before(got.StartedAt))
	assert.Equal(t, []Failure{{URL: "https://b.example", Error: "unexpected status 404"}}, got.Failures)
}

func TestFinishFailed(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	run, err := store.Start(ctx, []string{"https://a.example"}, "m")
	require.NoError(t, err)
	require.NoError(t, store.Finish(ctx, run.ID, Outcome{Err: errors.New("embedding service unavailable")}))

	got, err := store.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "embedding service unavailable", got.Error)
}

func TestFinishUnknownRun(t *testing.T) {
	store := setupStore(t)
	err := store.Finish(context.Background(), "nope", Outcome{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUnknownRun(t *testing.T) {
	store := setupStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	store := setupStore(t)
	store.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.Start(ctx, []string{"https://a.example"}, "m")
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = fixedClock(start)
	ctx := context.Background()

	old, err := store.Start(ctx, []string{"https://old.example"}, "m")
	require.NoError(t, err)
	require.NoError(t, store.Finish(ctx, old.ID, Outcome{Failures: []Failure{{URL: "https://old.example", Error: "x"}}}))
	_, err = store.Start(ctx, []string{"https://new.example"}, "m")
	require.NoError(t, err)

	// old started at +1s, new at +3s.
	n, err := store.DeleteBefore(ctx, start.Add(2*time.Second))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"https://new.example"}, list[0].URLs)
}

func TestDeleteBeforeKeepsLatest(t *testing.T) {
	store := setupStore(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = fixedClock(start)
	ctx := context.Background()

	_, err := store.Start(ctx, []string{"https://a.example"}, "m")
	require.NoError(t, err)
	last, err := store.Start(ctx, []string{"https://b.example"}, "m")
	require.NoError(t, err)

	n, err := store.DeleteBefore(ctx, start.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, last.ID, got.ID)
}

func TestLatest(t *testing.T) {
	store := setupStore(t)
	store.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := store.Start(ctx, []string{"https://a.example"}, "m")
	require.NoError(t, err)
	require.NoError(t, store.Finish(ctx, first.ID, Outcome{Documents: 1, Chunks: 2}))

	got, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, StatusDone, got.Status)

	second, err := store.Start(ctx, []string{"https://b.example"}, "m")
	require.NoError(t, err)
	require.NoError(t, store.Finish(ctx, second.ID, Outcome{Err: errors.New("embedding failed")}))

	got, err = store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, StatusFailed, got.Status)
}

func TestRoutes(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	run, err := store.Start(ctx, []string{"https://a.example"}, "m")
	require.NoError(t, err)
	require.NoError(t, store.Finish(ctx, run.ID, Outcome{Documents: 1, Chunks: 2}))

	r := chi.NewRouter()
	RegisterRoutes(r, store)
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list []Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, run.ID, list[0].ID)
	assert.Equal(t, StatusDone, list[0].Status)

	resp2, err := http.Get(srv.URL + "/api/runs/" + run.ID)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/api/runs/missing")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestRoutesEmptyList(t *testing.T) {
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}
