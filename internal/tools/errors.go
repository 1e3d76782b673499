package tools

import (
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/podsearch/internal/index"
	"github.com/raphaelgruber/podsearch/internal/llm"
	"github.com/raphaelgruber/podsearch/internal/navigator"
)

// ErrorResult creates a tool error result with optional recovery hint.
// If hint is non-empty, formats as "{msg}. {hint}".
// Returns IsError=true so the calling model can see the error and self-correct.
func ErrorResult(msg, hint string) *mcp.CallToolResult {
	text := msg
	if hint != "" {
		text = msg + ". " + hint
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}

// TextResult creates a success result with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// FailureResult maps a service error to an error result with a hint
// matching its cause.
func FailureResult(action string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, navigator.ErrMalformedOutput):
		return ErrorResult(action+" failed: the model returned malformed output", "Retry the request or configure a stronger model")
	case errors.Is(err, llm.ErrFatalAPI):
		return ErrorResult(action+" failed: the generation service rejected the request", "Check API credentials, quota and billing")
	case errors.Is(err, index.ErrNotFound):
		return ErrorResult(action+" failed: "+err.Error(), "Use episode ids returned by retrieve")
	default:
		return ErrorResult(action+" failed", "Check that the index and generation service are reachable")
	}
}

// truncateQuery shortens a query for log lines.
func truncateQuery(q string) string {
	r := []rune(strings.TrimSpace(q))
	if len(r) > 30 {
		return string(r[:30]) + "..."
	}
	return string(r)
}
