package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/propwise/internal/rag"
	"github.com/ziadkadry99/propwise/internal/vectordb"
)

// handleIngestURLs runs an ingestion and reports its milestones.
func (s *Server) handleIngestURLs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urls, err := request.RequireStringSlice("urls")
	if err != nil || len(urls) == 0 {
		return mcp.NewToolResultError("missing required parameter: urls"), nil
	}

	var b strings.Builder
	res, err := s.pipeline.Ingest(ctx, urls, func(ev rag.Event) {
		if ev.Stage != rag.StageFailed {
			b.WriteString(ev.Message)
			b.WriteString("\n")
		}
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", err)), nil
	}

	fmt.Fprintf(&b, "\nIndexed %d documents as %d chunks.\n", res.Documents, res.Chunks)
	for _, f := range res.Failures {
		fmt.Fprintf(&b, "Skipped %s: %v\n", f.URL, f.Err)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleAnswerQuestion answers a question from the indexed pages.
func (s *Server) handleAnswerQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	ans, err := s.pipeline.Answer(ctx, question)
	if err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	b.WriteString(ans.Text)
	if len(ans.Sources) > 0 {
		b.WriteString("\n\nSources:\n")
		for _, src := range ans.Sources {
			fmt.Fprintf(&b, "- %s\n", src)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

// handleSearchChunks returns raw retrieval results.
func (s *Server) handleSearchChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	results, err := s.pipeline.Search(ctx, query, request.GetInt("limit", 0))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, rag.ErrNotInitialized) {
		return mcp.NewToolResultError(rag.NotInitializedMessage)
	}
	return mcp.NewToolResultError(err.Error())
}
