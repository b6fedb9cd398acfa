package rag

import "errors"

// NotInitializedMessage is what user-facing surfaces show for
// ErrNotInitialized.
const NotInitializedMessage = "You must process urls first"

var (
	// ErrConfiguration means a credential or model identifier needed to
	// build the components is missing or invalid.
	ErrConfiguration = errors.New("configuration error")

	// ErrNotInitialized is returned by queries issued before any ingestion
	// has completed.
	ErrNotInitialized = errors.New("vector store is not initialized")

	// ErrNoDocuments is returned when none of the URLs could be loaded.
	ErrNoDocuments = errors.New("no documents could be loaded")

	// ErrServiceUnavailable wraps failures of the embedding service, the
	// vector store or the answer generator.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrNoURLs is returned when ingestion is called without any URL.
	ErrNoURLs = errors.New("at least one url is required")

	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("question must not be empty")
)
