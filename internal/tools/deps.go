// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/podsearch/internal/citations"
	"github.com/raphaelgruber/podsearch/internal/index"
	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/service"
)

// Researcher answers and verifies. *service.ResearchService implements it.
type Researcher interface {
	Run(ctx context.Context, query string, mode service.Mode) (*service.Output, error)
	Verify(ctx context.Context, text string, episodeIDs []string) (citations.Report, error)
}

// StatsReader reports index counts. *index.Store implements it.
type StatsReader interface {
	Stats(ctx context.Context) (index.Stats, error)
}

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Retriever service.Retriever
	Research  Researcher
	Index     StatsReader
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}
