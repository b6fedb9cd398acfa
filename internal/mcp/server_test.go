package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/propwise/internal/chunker"
	"github.com/ziadkadry99/propwise/internal/llm"
	"github.com/ziadkadry99/propwise/internal/loader"
	"github.com/ziadkadry99/propwise/internal/rag"
	"github.com/ziadkadry99/propwise/internal/vectordb"
)

// mockLoader implements rag.DocumentLoader for testing.
type mockLoader struct{}

func (m *mockLoader) Load(_ context.Context, urls []string) ([]loader.Document, []loader.LoadFailure) {
	var docs []loader.Document
	var failures []loader.LoadFailure
	for _, u := range urls {
		if strings.HasSuffix(u, "/404") {
			failures = append(failures, loader.LoadFailure{URL: u, Err: errors.New("unexpected status 404")})
			continue
		}
		docs = append(docs, loader.Document{SourceURL: u, Title: "Listing", Text: "Three bedroom homes near " + u})
	}
	return docs, failures
}

// mockEmbedder implements embeddings.Embedder for testing.
type mockEmbedder struct{}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1, 0.5, 0.25}
	}
	return result, nil
}
func (m *mockEmbedder) Dimensions() int { return 3 }
func (m *mockEmbedder) Name() string    { return "mock" }

// mockProvider implements llm.Provider for testing.
type mockProvider struct{}

func (m *mockProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: "Homes there average three bedrooms."}, nil
}
func (m *mockProvider) Name() string { return "mock" }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := vectordb.NewChromemStore("", "real_estate", 0, nil)
	require.NoError(t, err)
	p := rag.New(func(context.Context) (*rag.Components, error) {
		sp, err := chunker.New(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap)
		if err != nil {
			return nil, err
		}
		return &rag.Components{
			Loader:    &mockLoader{},
			Splitter:  sp,
			Embedder:  &mockEmbedder{},
			Store:     store,
			Generator: &mockProvider{},
		}, nil
	}, rag.Options{})
	return NewServer(p)
}

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		tool     mcp.Tool
		wantName string
		required string
	}{
		{ingestURLsTool, "ingest_urls", "urls"},
		{answerQuestionTool, "answer_question", "question"},
		{searchChunksTool, "search_chunks", "query"},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			assert.Equal(t, tt.wantName, tt.tool.Name)
			assert.NotEmpty(t, tt.tool.Description)
			assert.Contains(t, tt.tool.InputSchema.Required, tt.required)
		})
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t)
	require.NotNil(t, srv.mcp)
	require.NotNil(t, srv.pipeline)
}

func TestAnswerBeforeIngest(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleAnswerQuestion(context.Background(), call(map[string]any{"question": "How big are the homes?"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, rag.NotInitializedMessage, text(t, res))

	res, err = srv.handleSearchChunks(context.Background(), call(map[string]any{"query": "homes"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestIngestThenAnswer(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	res, err := srv.handleIngestURLs(ctx, call(map[string]any{
		"urls": []any{"https://homes.example/a", "https://homes.example/404"},
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	out := text(t, res)
	assert.Contains(t, out, "Initializing components...")
	assert.Contains(t, out, "All done!")
	assert.Contains(t, out, "Indexed 1 documents as 1 chunks.")
	assert.Contains(t, out, "Skipped https://homes.example/404")

	res, err = srv.handleAnswerQuestion(ctx, call(map[string]any{"question": "How big are the homes?"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	out = text(t, res)
	assert.True(t, strings.HasPrefix(out, "Homes there average three bedrooms."))
	assert.Contains(t, out, "- https://homes.example/a")

	res, err = srv.handleSearchChunks(ctx, call(map[string]any{"query": "homes", "limit": 2}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, text(t, res), "Source: https://homes.example/a")
}

func TestIngestFailure(t *testing.T) {
	srv := newTestServer(t)

	res, err := srv.handleIngestURLs(context.Background(), call(map[string]any{
		"urls": []any{"https://homes.example/404"},
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "no documents could be loaded")
}

func TestMissingArguments(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	res, err := srv.handleIngestURLs(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = srv.handleAnswerQuestion(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = srv.handleSearchChunks(ctx, call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
