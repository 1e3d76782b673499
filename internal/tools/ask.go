package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/podsearch/internal/service"
)

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Query string `json:"query" jsonschema:"The research question"`
	Quick bool   `json:"quick,omitempty" jsonschema:"Faster single-pass retrieval with fewer quotes"`
}

// NewAskHandler creates the ask tool handler. The answer is returned as
// markdown with verified inline citations; unverified quotes are listed
// after it.
func NewAskHandler(deps *Dependencies) mcp.ToolHandlerFor[AskInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, any, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return ErrorResult("Query cannot be empty", "Provide a research question"), nil, nil
		}
		mode := service.ModeDeep
		if input.Quick {
			mode = service.ModeQuick
		}

		out, err := deps.Research.Run(ctx, input.Query, mode)
		if err != nil {
			deps.Logger.Error("ask failed", "query", truncateQuery(input.Query), "error", err)
			return FailureResult("Research", err), nil, nil
		}

		deps.Logger.Info("ask completed",
			"query", truncateQuery(input.Query),
			"mode", out.Mode,
			"citations", len(out.Citations),
			"unverified", len(out.Unverified),
		)
		return TextResult(formatAnswer(out)), nil, nil
	}
}

func formatAnswer(out *service.Output) string {
	var b strings.Builder
	b.WriteString(out.Content)
	if len(out.Unverified) > 0 {
		fmt.Fprintf(&b, "\n\n%d quote(s) could not be verified against the archive:\n", len(out.Unverified))
		for _, q := range out.Unverified {
			fmt.Fprintf(&b, "- %q\n", q)
		}
	}
	return b.String()
}
