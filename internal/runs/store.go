package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/propwise/internal/db"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Store persists ingestion runs.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Start records a new running ingestion and returns it.
func (s *Store) Start(ctx context.Context, urls []string, embeddingModel string) (*Run, error) {
	run := &Run{
		ID:             uuid.New().String(),
		URLs:           urls,
		Status:         StatusRunning,
		EmbeddingModel: embeddingModel,
		StartedAt:      s.now().UTC(),
	}

	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("marshalling urls: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingestion_runs (id, urls, status, embedding_model, started_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, string(urlsJSON), string(run.Status), embeddingModel, run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting ingestion run: %w", err)
	}
	return run, nil
}

// Finish closes a run with the given outcome and stores its load failures.
func (s *Store) Finish(ctx context.Context, id string, out Outcome) error {
	status := StatusDone
	var errText string
	if out.Err != nil {
		status = StatusFailed
		errText = out.Err.Error()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE ingestion_runs
		SET status = ?, documents = ?, chunks = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		string(status), out.Documents, out.Chunks, errText, s.now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("updating ingestion run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	for _, f := range out.Failures {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO load_failures (run_id, url, error) VALUES (?, ?, ?)`,
			id, f.URL, f.Error,
		); err != nil {
			return fmt.Errorf("inserting load failure: %w", err)
		}
	}

	return tx.Commit()
}

// Get returns a run with its failures.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, urls, status, documents, chunks, embedding_model, error, started_at, finished_at
		FROM ingestion_runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	run.Failures, err = s.failures(ctx, id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first. A non-positive limit returns all.
// Failures are not loaded; use Get for the details of one run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, urls, status, documents, chunks, embedding_model, error, started_at, finished_at
		FROM ingestion_runs ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying ingestion runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Latest returns the most recently started run, without its failures. It
// returns ErrNotFound when no run has been recorded.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, urls, status, documents, chunks, embedding_model, error, started_at, finished_at
		FROM ingestion_runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// DeleteBefore removes runs started before the given time and returns how
// many were deleted. The latest run is always kept, since it records
// whether the current collection is complete.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM ingestion_runs
		WHERE started_at < ?
		AND id NOT IN (SELECT id FROM ingestion_runs ORDER BY started_at DESC, rowid DESC LIMIT 1)`,
		before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old ingestion runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, error FROM load_failures WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying load failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.URL, &f.Error); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r          Run
		urlsJSON   string
		status     string
		startedAt  string
		finishedAt sql.NullString
	)
	if err := sc.Scan(&r.ID, &urlsJSON, &status, &r.Documents, &r.Chunks,
		&r.EmbeddingModel, &r.Error, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	r.Status = Status(status)
	if err := json.Unmarshal([]byte(urlsJSON), &r.URLs); err != nil {
		r.URLs = nil
	}
	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		r.StartedAt = t
	}
	if finishedAt.Valid {
		if t, err := time.Parse(timeLayout, finishedAt.String); err == nil {
			r.FinishedAt = &t
		}
	}
	return &r, nil
}
