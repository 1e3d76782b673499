package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// VerifyInput defines the input schema for the verify_citations tool.
type VerifyInput struct {
	Text       string   `json:"text" jsonschema:"Markdown text containing quoted passages"`
	EpisodeIDs []string `json:"episode_ids" jsonschema:"Episodes whose quotes are the verification sources"`
}

// NewVerifyHandler creates the verify_citations tool handler.
func NewVerifyHandler(deps *Dependencies) mcp.ToolHandlerFor[VerifyInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input VerifyInput) (
		*mcp.CallToolResult, any, error,
	) {
		if strings.TrimSpace(input.Text) == "" {
			return ErrorResult("Text cannot be empty", "Provide the text to verify"), nil, nil
		}
		if len(input.EpisodeIDs) == 0 {
			return ErrorResult("episode_ids cannot be empty", "Pass the episode ids the quotes come from"), nil, nil
		}

		report, err := deps.Research.Verify(ctx, input.Text, input.EpisodeIDs)
		if err != nil {
			deps.Logger.Warn("verification failed", "episodes", input.EpisodeIDs, "error", err)
			return FailureResult("Verification", err), nil, nil
		}

		jsonBytes, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return ErrorResult("Failed to encode report", ""), nil, nil
		}
		deps.Logger.Info("verification completed",
			"verified", len(report.Citations),
			"unverified", len(report.Unverified),
		)
		return TextResult(string(jsonBytes)), nil, nil
	}
}
