package tools_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/podsearch/internal/citations"
	"github.com/raphaelgruber/podsearch/internal/index"
	"github.com/raphaelgruber/podsearch/internal/llm"
	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/models"
	"github.com/raphaelgruber/podsearch/internal/navigator"
	"github.com/raphaelgruber/podsearch/internal/service"
	"github.com/raphaelgruber/podsearch/internal/tools"
)

var sampleQuote = navigator.RetrievedQuote{Quote: models.Quote{
	QuoteID:   "sean-ellis_t1_q1",
	TopicID:   "sean-ellis_t1",
	Text:      "If 40% of users say they would be very disappointed without your product, you have product-market fit.",
	Speaker:   "Sean Ellis",
	Timestamp: "00:07:45",
}}

type fakeRetriever struct {
	err      error
	lastTopK int
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string) (*navigator.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &navigator.Result{RetrievalID: "r-1", Query: query, Quotes: []navigator.RetrievedQuote{sampleQuote}, Iterations: 1, Sufficient: true}, nil
}

func (f *fakeRetriever) RetrieveQuick(_ context.Context, _ string, topK int) ([]navigator.RetrievedQuote, error) {
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return []navigator.RetrievedQuote{sampleQuote}, nil
}

type fakeResearch struct {
	err      error
	lastMode service.Mode
}

func (f *fakeResearch) Run(_ context.Context, query string, mode service.Mode) (*service.Output, error) {
	f.lastMode = mode
	if f.err != nil {
		return nil, f.err
	}
	return &service.Output{
		Query:      query,
		Mode:       mode,
		Content:    "PMF is measured with a survey.",
		Unverified: []string{"an invented quote from nowhere"},
	}, nil
}

func (f *fakeResearch) Verify(_ context.Context, text string, episodeIDs []string) (citations.Report, error) {
	if episodeIDs[0] == "missing" {
		return citations.Report{}, fmt.Errorf("episode %q: %w", "missing", index.ErrNotFound)
	}
	return citations.Report{Text: text + " [checked]", Citations: []citations.Citation{}, Unverified: []string{}}, nil
}

type fixture struct {
	ctx       context.Context
	session   *mcp.ClientSession
	retriever *fakeRetriever
	research  *fakeResearch
	metrics   *metrics.Collector
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		retriever: &fakeRetriever{},
		research:  &fakeResearch{},
		metrics:   metrics.NewCollector(),
	}
	deps := &tools.Dependencies{
		Retriever: f.retriever,
		Research:  f.research,
		Index:     index.NewStore(index.NewFileSource("../index/testdata/index"), nil),
		Metrics:   f.metrics,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "test-podsearch", Version: "0.0.1-test"}, nil)
	tools.RegisterAll(server, deps)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()
		cancel()
		select {
		case <-serverErr:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop within timeout")
		}
	})

	f.ctx = ctx
	f.session = session
	return f
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := f.session.CallTool(f.ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content should be TextContent")
	return text.Text, result.IsError
}

func TestToolsRegistered(t *testing.T) {
	f := setup(t)

	result, err := f.session.ListTools(f.ctx, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"retrieve", "ask", "verify_citations", "index_stats", "server_stats"}, names)
}

func TestRetrieveTool(t *testing.T) {
	f := setup(t)

	t.Run("deep", func(t *testing.T) {
		text, isErr := f.call(t, "retrieve", map[string]any{"query": "pmf"})
		require.False(t, isErr, text)

		var result navigator.Result
		require.NoError(t, json.Unmarshal([]byte(text), &result))
		assert.Equal(t, "r-1", result.RetrievalID)
		require.Len(t, result.Quotes, 1)
		assert.Equal(t, "sean-ellis_t1_q1", result.Quotes[0].QuoteID)
	})

	t.Run("quick uses default top k", func(t *testing.T) {
		text, isErr := f.call(t, "retrieve", map[string]any{"query": "pmf", "quick": true})
		require.False(t, isErr, text)
		assert.Equal(t, navigator.DefaultQuickTopK, f.retriever.lastTopK)

		var result tools.QuickRetrieveResult
		require.NoError(t, json.Unmarshal([]byte(text), &result))
		assert.Equal(t, 1, result.Count)
	})

	t.Run("validation", func(t *testing.T) {
		text, isErr := f.call(t, "retrieve", map[string]any{"query": " "})
		assert.True(t, isErr)
		assert.Contains(t, text, "Query cannot be empty")

		text, isErr = f.call(t, "retrieve", map[string]any{"query": "pmf", "quick": true, "top_k": 99})
		assert.True(t, isErr)
		assert.Contains(t, text, "top_k must be 1-30")
	})
}

func TestRetrieveToolFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "malformed output", err: fmt.Errorf("select themes: %w", navigator.ErrMalformedOutput), want: "malformed output"},
		{name: "fatal api", err: fmt.Errorf("generate json: %w", llm.ErrFatalAPI), want: "rejected the request"},
		{name: "other", err: fmt.Errorf("dial tcp: refused"), want: "Check that the index and generation service are reachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			f.retriever.err = tt.err

			text, isErr := f.call(t, "retrieve", map[string]any{"query": "pmf"})
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestAskTool(t *testing.T) {
	f := setup(t)

	text, isErr := f.call(t, "ask", map[string]any{"query": "How is PMF measured?", "quick": true})
	require.False(t, isErr, text)
	assert.Equal(t, service.ModeQuick, f.research.lastMode)
	assert.Contains(t, text, "PMF is measured with a survey.")
	assert.Contains(t, text, "1 quote(s) could not be verified")
	assert.Contains(t, text, `- "an invented quote from nowhere"`)

	_, isErr = f.call(t, "ask", map[string]any{"query": "deep one"})
	require.False(t, isErr)
	assert.Equal(t, service.ModeDeep, f.research.lastMode)
}

func TestVerifyTool(t *testing.T) {
	f := setup(t)

	text, isErr := f.call(t, "verify_citations", map[string]any{"text": "some text", "episode_ids": []string{"sean-ellis"}})
	require.False(t, isErr, text)
	var report citations.Report
	require.NoError(t, json.Unmarshal([]byte(text), &report))
	assert.Equal(t, "some text [checked]", report.Text)

	text, isErr = f.call(t, "verify_citations", map[string]any{"text": "some text", "episode_ids": []string{"missing"}})
	assert.True(t, isErr)
	assert.Contains(t, text, "Use episode ids returned by retrieve")

	text, isErr = f.call(t, "verify_citations", map[string]any{"text": "some text", "episode_ids": []string{}})
	assert.True(t, isErr)
	assert.Contains(t, text, "episode_ids cannot be empty")
}

func TestStatsTools(t *testing.T) {
	f := setup(t)

	text, isErr := f.call(t, "index_stats", map[string]any{})
	require.False(t, isErr, text)
	var stats index.Stats
	require.NoError(t, json.Unmarshal([]byte(text), &stats))
	assert.Equal(t, 3, stats.EpisodeCount)
	assert.Equal(t, 4, stats.QuoteCount)

	f.metrics.RecordTiming(metrics.OpNavigationStep, 5*time.Millisecond)
	text, isErr = f.call(t, "server_stats", map[string]any{})
	require.False(t, isErr, text)
	var snap metrics.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text), &snap))
	require.NotNil(t, snap.NavigationStep)
	assert.Equal(t, int64(1), snap.NavigationStep.Count)
}
