package mcp

import "github.com/mark3labs/mcp-go/mcp"

// ingestURLsTool defines the ingest_urls MCP tool.
var ingestURLsTool = mcp.NewTool("ingest_urls",
	mcp.WithDescription("Fetch web pages, split them into chunks and index them for question answering. Replaces anything indexed before."),
	mcp.WithArray("urls",
		mcp.Required(),
		mcp.Description("Absolute http(s) URLs of the pages to index"),
		mcp.WithStringItems(),
		mcp.MinItems(1),
	),
)

// answerQuestionTool defines the answer_question MCP tool.
var answerQuestionTool = mcp.NewTool("answer_question",
	mcp.WithDescription("Answer a real estate question from the indexed pages and list the source URLs used."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
)

// searchChunksTool defines the search_chunks MCP tool.
var searchChunksTool = mcp.NewTool("search_chunks",
	mcp.WithDescription("Return the indexed chunks most similar to a query, without generating an answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of chunks to return (default 4)"),
	),
)
