package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsInput is the empty input of the stats tools.
type StatsInput struct{}

// NewIndexStatsHandler creates the index_stats tool handler.
func NewIndexStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, any, error) {
		stats, err := deps.Index.Stats(ctx)
		if err != nil {
			deps.Logger.Error("index stats failed", "error", err)
			return ErrorResult("Failed to read index", "Check the index path or backend configuration"), nil, nil
		}
		jsonBytes, _ := json.MarshalIndent(stats, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}

// NewServerStatsHandler creates the server_stats tool handler.
func NewServerStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, any, error) {
		if deps.Metrics == nil {
			return ErrorResult("Metrics are not enabled", ""), nil, nil
		}
		jsonBytes, _ := json.MarshalIndent(deps.Metrics.Snapshot(), "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
