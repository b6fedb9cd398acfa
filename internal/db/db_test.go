package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	for _, table := range []string{"ingestion_runs", "load_failures"} {
		var count int
		err := d.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		assert.NoError(t, err, "table %s", table)
	}
	assert.Equal(t, ":memory:", d.Path())
}

func TestMigrateIdempotent(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	assert.NoError(t, d.migrate())
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "propwise.db")
	d, err := Open(path)
	require.NoError(t, err)

	_, err = d.Exec(`INSERT INTO ingestion_runs (id, started_at) VALUES ('r1', '2026-01-01T00:00:00.000000Z')`)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()

	var status string
	require.NoError(t, d.QueryRow(`SELECT status FROM ingestion_runs WHERE id = 'r1'`).Scan(&status))
	assert.Equal(t, "running", status)
}

func TestFailuresCascadeWithRun(t *testing.T) {
	d, err := OpenMemory()
	require.NoError(t, err)
	defer d.Close()

	_, err = d.Exec(`INSERT INTO ingestion_runs (id, started_at) VALUES ('r1', '2026-01-01T00:00:00.000000Z')`)
	require.NoError(t, err)
	_, err = d.Exec(`INSERT INTO load_failures (run_id, url, error) VALUES ('r1', 'https://a', 'boom')`)
	require.NoError(t, err)

	_, err = d.Exec(`DELETE FROM ingestion_runs WHERE id = 'r1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM load_failures`).Scan(&n))
	assert.Zero(t, n)
}
