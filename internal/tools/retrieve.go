package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/podsearch/internal/navigator"
)

const maxTopK = 30

// RetrieveInput defines the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"The research question"`
	Quick bool   `json:"quick,omitempty" jsonschema:"Single navigation pass without sufficiency checks"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Quick mode only: max quotes 1-30, default 10"`
}

// QuickRetrieveResult is the retrieve tool's quick-mode output.
type QuickRetrieveResult struct {
	Query  string                     `json:"query"`
	Quotes []navigator.RetrievedQuote `json:"quotes"`
	Count  int                        `json:"count"`
}

// NewRetrieveHandler creates the retrieve tool handler.
func NewRetrieveHandler(deps *Dependencies) mcp.ToolHandlerFor[RetrieveInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RetrieveInput) (
		*mcp.CallToolResult, any, error,
	) {
		if strings.TrimSpace(input.Query) == "" {
			return ErrorResult("Query cannot be empty", "Provide a research question"), nil, nil
		}
		topK := input.TopK
		if topK == 0 {
			topK = navigator.DefaultQuickTopK
		}
		if topK < 1 || topK > maxTopK {
			return ErrorResult("top_k must be 1-30", "Reduce top_k"), nil, nil
		}

		var out any
		if input.Quick {
			quotes, err := deps.Retriever.RetrieveQuick(ctx, input.Query, topK)
			if err != nil {
				deps.Logger.Error("quick retrieval failed", "query", truncateQuery(input.Query), "error", err)
				return FailureResult("Retrieval", err), nil, nil
			}
			out = QuickRetrieveResult{Query: input.Query, Quotes: quotes, Count: len(quotes)}
			deps.Logger.Info("retrieve completed", "query", truncateQuery(input.Query), "mode", "quick", "quotes", len(quotes))
		} else {
			result, err := deps.Retriever.Retrieve(ctx, input.Query)
			if err != nil {
				deps.Logger.Error("retrieval failed", "query", truncateQuery(input.Query), "error", err)
				return FailureResult("Retrieval", err), nil, nil
			}
			out = result
			deps.Logger.Info("retrieve completed",
				"query", truncateQuery(input.Query),
				"retrieval_id", result.RetrievalID,
				"quotes", len(result.Quotes),
				"iterations", result.Iterations,
			)
		}

		jsonBytes, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return ErrorResult("Failed to encode result", ""), nil, nil
		}
		return TextResult(string(jsonBytes)), nil, nil
	}
}
