package llm

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned when a hosted provider is selected without
// credentials in the environment.
var ErrMissingAPIKey = errors.New("missing API key")

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
