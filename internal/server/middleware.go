package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// maxArgLogLen bounds logged params, in runes.
	maxArgLogLen = 200
	// SlowRequestThreshold is the duration above which requests are logged at WARN.
	SlowRequestThreshold = 100 * time.Millisecond
)

// LoggingMiddleware logs every request with its duration. Failures log at
// ERROR, requests slower than SlowRequestThreshold at WARN, the rest at DEBUG.
// Tool calls additionally carry the tool name and whether the tool reported
// an error result.
func LoggingMiddleware(logger *slog.Logger) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)
			duration := time.Since(start)

			attrs := []any{
				"method", method,
				"duration_ms", duration.Milliseconds(),
			}
			if p, ok := req.GetParams().(*mcp.CallToolParamsRaw); ok && p != nil {
				attrs = append(attrs, "tool", p.Name)
				if len(p.Arguments) > 0 {
					attrs = append(attrs, "params", truncate(string(p.Arguments), maxArgLogLen))
				}
			} else if params := formatParams(req); params != "" {
				attrs = append(attrs, "params", truncate(params, maxArgLogLen))
			}
			if r, ok := result.(*mcp.CallToolResult); ok && r != nil && r.IsError {
				attrs = append(attrs, "tool_error", true)
			}

			switch {
			case err != nil:
				attrs = append(attrs, "error", err.Error())
				logger.Error("request failed", attrs...)
			case duration > SlowRequestThreshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}
			return result, err
		}
	}
}

func formatParams(req mcp.Request) string {
	params := req.GetParams()
	if params == nil {
		return ""
	}
	return fmt.Sprintf("%+v", params)
}

// truncate shortens s to maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen < 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
