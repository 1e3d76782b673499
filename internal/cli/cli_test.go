package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/podsearch/internal/citations"
	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/models"
	"github.com/raphaelgruber/podsearch/internal/navigator"
	"github.com/raphaelgruber/podsearch/internal/service"
)

func sampleResult() *navigator.Result {
	return &navigator.Result{
		RetrievalID:  "r-1",
		Query:        "how to find pmf",
		NamedSpeaker: "Rahul Vohra",
		Themes:       []string{"pmf"},
		Quotes: []navigator.RetrievedQuote{{
			Quote: models.Quote{
				QuoteID:     "q1",
				TopicID:     "t1",
				TopicTitle:  "Measuring PMF",
				Text:        "Ask users how they would feel",
				Speaker:     "Rahul Vohra",
				Timestamp:   "00:12:30",
				YouTubeLink: "https://youtube.com/watch?v=abc&t=750s",
			},
		}},
		ReasoningTrace: []string{"[Themes] Selected: [pmf]"},
		Iterations:     2,
		Sufficient:     true,
		Confidence:     0.85,
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "yaml"} {
		assert.NoError(t, validateFormat(f), f)
	}
	assert.Error(t, validateFormat("xml"))
	assert.Error(t, validateFormat(""))
}

func TestWriteStructured(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStructured(&buf, formatJSON, sampleResult()))

		var got map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "r-1", got["retrieval_id"])
		quotes := got["quotes"].([]any)
		assert.Equal(t, "q1", quotes[0].(map[string]any)["quote_id"])
	})

	t.Run("yaml inlines embedded quote fields", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStructured(&buf, formatYAML, sampleResult()))

		var got map[string]any
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, "Rahul Vohra", got["named_speaker"])
		quotes := got["quotes"].([]any)
		assert.Equal(t, "00:12:30", quotes[0].(map[string]any)["timestamp"])
	})

	t.Run("unknown format", func(t *testing.T) {
		assert.Error(t, writeStructured(&bytes.Buffer{}, "csv", sampleResult()))
	})
}

func TestRenderRetrieval(t *testing.T) {
	var buf bytes.Buffer
	renderRetrieval(&buf, sampleResult(), false)
	out := buf.String()

	assert.Contains(t, out, "Speaker: Rahul Vohra")
	assert.Contains(t, out, "Iterations: 2, sufficient: true, confidence: 85%")
	assert.Contains(t, out, "1. Rahul Vohra [00:12:30] (Measuring PMF)")
	assert.Contains(t, out, "> Ask users how they would feel")
	assert.NotContains(t, out, "Reasoning Trace")

	buf.Reset()
	renderRetrieval(&buf, sampleResult(), true)
	assert.Contains(t, buf.String(), "[Themes] Selected: [pmf]")

	buf.Reset()
	renderRetrieval(&buf, &navigator.Result{Query: "nothing"}, true)
	assert.Contains(t, buf.String(), "No quotes found.")
	assert.NotContains(t, buf.String(), "Iterations:")
}

func TestRenderAnswer(t *testing.T) {
	out := renderAnswer(&service.Output{Content: "Answer body"})
	assert.Equal(t, "Answer body\n", out)

	out = renderAnswer(&service.Output{
		Content:    "Answer body\n",
		Unverified: []string{"made up line"},
	})
	assert.Equal(t, "Answer body\n\n1 quote(s) could not be verified:\n  • \"made up line\"\n", out)
}

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	renderReport(&buf, citations.Report{
		Text: "text",
		Citations: []citations.Citation{
			citations.NewCitation("a quote", citations.Source{Speaker: "Ann", Title: "Ep", Timestamp: "00:01:00"}, 0.93),
		},
		Unverified: []string{"bad"},
	})
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "text\n"))
	assert.Contains(t, out, "Verified: 1, unverified: 1")
	assert.Contains(t, out, "(93%)")
	assert.Contains(t, out, `✗ "bad"`)
}

func TestPrintUsage(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordLLMUsage(metrics.OpLLMGenerate, 120*time.Millisecond, 1000, 200)
	c.RecordTiming(metrics.OpNavigationStep, 30*time.Millisecond)
	c.Add(metrics.CounterVerifiedQuotes, 4)

	var buf bytes.Buffer
	printUsage(&buf, c.Snapshot())
	out := buf.String()

	assert.Contains(t, out, "Navigation Steps:")
	assert.Contains(t, out, "LLM Generate:")
	assert.Contains(t, out, "Tokens In:  1000 total")
	assert.Contains(t, out, "Tokens Out: 200 total")
	assert.Contains(t, out, "verified_quotes:")
	assert.NotContains(t, out, "Verification:")
	assert.NotContains(t, out, "Index Load:")
}

func TestReadInput(t *testing.T) {
	got, err := readInput(strings.NewReader("from stdin"), "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", got)

	_, err = readInput(strings.NewReader(""), t.TempDir()+"/missing.md")
	assert.Error(t, err)
}

func TestNavProgressModel(t *testing.T) {
	var m tea.Model = newNavProgressModel("Researching")

	m, _ = m.Update(navStepMsg(navigator.Event{Step: navigator.StepThemes, Detail: "Selected: [pmf]", Iteration: 1, Duration: 1500 * time.Millisecond}))
	view := m.(navProgressModel).renderContent()
	assert.Contains(t, view, "Themes Selected: [pmf]")
	assert.Contains(t, view, "Researching...")

	m, cmd := m.Update(workDoneMsg{})
	require.NotNil(t, cmd)
	final := m.(navProgressModel)
	assert.True(t, final.done)
	assert.Contains(t, final.renderContent(), "Researching")
	assert.NotContains(t, final.renderContent(), "Press q")

	quit, _ := newNavProgressModel("x").Update(tea.KeyPressMsg{Code: 'q', Text: "q"})
	assert.True(t, quit.(navProgressModel).quitting)
}
