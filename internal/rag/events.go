package rag

import (
	"fmt"
	"time"

	"github.com/ziadkadry99/propwise/internal/loader"
)

// Stage identifies an ingestion milestone.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageResetting    Stage = "resetting"
	StageLoading      Stage = "loading"
	StageSplitting    Stage = "splitting"
	StageEmbedding    Stage = "embedding"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Terminal reports whether no event can follow this stage.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Event is one progress milestone of an ingestion. Exactly one terminal
// event (done or failed) ends every ingestion.
type Event struct {
	Stage   Stage         `json:"stage"`
	Message string        `json:"message"`
	Error   string        `json:"error,omitempty"`
	Result  *IngestResult `json:"result,omitempty"`

	// Err is the failure carried by a failed event.
	Err error `json:"-"`
}

// IngestResult summarises a completed ingestion.
type IngestResult struct {
	RunID     string               `json:"run_id,omitempty"`
	Fetcher   string               `json:"fetcher,omitempty"`
	Documents int                  `json:"documents"`
	Chunks    int                  `json:"chunks"`
	Failures  []loader.LoadFailure `json:"failures,omitempty"`
	Duration  time.Duration        `json:"duration_ns"`
}

const doneMessage = "All done! You can now ask questions related to the processed URLs."

func milestone(stage Stage, message string) Event {
	return Event{Stage: stage, Message: message}
}

func splittingMessage(size int) string {
	return fmt.Sprintf("Splitting data into chunks of %d...", size)
}

func embeddingMessage(model string) string {
	return fmt.Sprintf("Creating embeddings using %s model and adding to vector database...", model)
}

func failedEvent(err error) Event {
	return Event{
		Stage:   StageFailed,
		Message: "Ingestion failed",
		Error:   err.Error(),
		Err:     err,
	}
}
