package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Navigate the podcast index (themes, episodes, topics, quotes) and return attributed quotes for a question",
	}, NewRetrieveHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the podcast archive with verified inline citations",
	}, NewAskHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "verify_citations",
		Description: "Check quoted passages in text against the quotes of the given episodes and attach canonical citations",
	}, NewVerifyHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Count episodes, themes, topics and quotes in the index",
	}, NewIndexStatsHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "server_stats",
		Description: "Operation timings, token usage and verification counters since startup",
	}, NewServerStatsHandler(deps))
}
