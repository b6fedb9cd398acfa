package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/propwise/internal/rag"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the ingestion and question
// answering pipeline as tools.
type Server struct {
	pipeline *rag.Pipeline
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server backed by the given pipeline.
func NewServer(pipeline *rag.Pipeline) *Server {
	s := &Server{pipeline: pipeline}

	s.mcp = server.NewMCPServer(
		"propwise",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestURLsTool, s.handleIngestURLs)
	s.mcp.AddTool(answerQuestionTool, s.handleAnswerQuestion)
	s.mcp.AddTool(searchChunksTool, s.handleSearchChunks)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
