package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/propwise/internal/db"
	"github.com/ziadkadry99/propwise/internal/runs"
)

func TestPruneRuns(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	store := runs.NewStore(database)
	ctx := context.Background()

	for _, u := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		_, err := store.Start(ctx, []string{u}, "m")
		require.NoError(t, err)
	}

	_, err = pruneRuns(ctx, store, -time.Hour, time.Now())
	assert.Error(t, err)

	// Nothing is older than a day.
	n, err := pruneRuns(ctx, store, 24*time.Hour, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	// Seen from a week later, everything is old except the latest run.
	n, err = pruneRuns(ctx, store, 24*time.Hour, time.Now().Add(7*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"https://c.example"}, list[0].URLs)
}
