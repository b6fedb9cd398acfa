// Package runs keeps a ledger of ingestion runs and the URLs that failed to
// load in each of them.
package runs

import "time"

// Status is the lifecycle state of an ingestion run.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Failure records one URL that could not be loaded.
type Failure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Run is a single ingestion as recorded in the ledger.
type Run struct {
	ID             string     `json:"id"`
	URLs           []string   `json:"urls"`
	Status         Status     `json:"status"`
	Documents      int        `json:"documents"`
	Chunks         int        `json:"chunks"`
	EmbeddingModel string     `json:"embedding_model,omitempty"`
	Error          string     `json:"error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Failures       []Failure  `json:"failures,omitempty"`
}

// Outcome is what an ingestion reports when it ends.
type Outcome struct {
	Documents int
	Chunks    int
	Failures  []Failure
	// Err is nil for a successful run.
	Err error
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"
