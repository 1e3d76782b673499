// Package navigator implements LLM-guided retrieval over the podcast index.
//
// A retrieval walks themes, then episodes, then topics, then quotes, asking a
// generation service to choose at each level. Every id the model proposes is
// checked against the index before it enters the navigation state. The walk
// repeats until the model judges the retrieved quotes sufficient or the
// iteration cap is reached.
//
// Speaker extraction is best-effort: any failure there means "no named
// speaker". Every later step fails fast with ErrMalformedOutput when the
// model's response is not valid JSON or lacks a required field.
package navigator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/models"
)

// IndexReader is the index access the navigator needs. *index.Store implements it.
type IndexReader interface {
	EpisodeIndex(ctx context.Context) (map[string]models.Episode, error)
	AllThemes(ctx context.Context) ([]models.Theme, error)
	Theme(ctx context.Context, id string) (models.Theme, error)
	Topics(ctx context.Context, episodeID string) ([]models.Topic, error)
	QuotesForTopic(ctx context.Context, topicID string) ([]models.Quote, error)
}

// Generator produces a JSON object response for a prompt. *llm.Model implements it.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Step names reported to observers and used as reasoning trace tags.
const (
	StepSpeaker     = "Speaker"
	StepThemes      = "Themes"
	StepEpisodes    = "Episodes"
	StepTopics      = "Topics"
	StepQuotes      = "Quotes"
	StepSufficiency = "Sufficiency"
	StepExpanding   = "Expanding"
	StepComplete    = "Complete"
)

// Event describes a completed navigation step.
type Event struct {
	RetrievalID string
	Step        string
	Iteration   int // 1-based
	Detail      string
	Duration    time.Duration
}

// Options bounds a retrieval. Zero fields take the defaults.
type Options struct {
	MaxIterations        int
	MaxQuotesPerTopic    int
	MaxTotalQuotes       int
	MaxCandidateEpisodes int
	MaxSufficiencyQuotes int
	MaxTopicListChars    int

	// Observer, if set, is called synchronously after each step.
	Observer func(Event)
	Metrics  *metrics.Collector
}

// Defaults for Options.
const (
	DefaultMaxIterations        = 3
	DefaultMaxQuotesPerTopic    = 5
	DefaultMaxTotalQuotes       = 30
	DefaultMaxCandidateEpisodes = 30
	DefaultMaxSufficiencyQuotes = 20
	DefaultMaxTopicListChars    = 15000
	DefaultQuickTopK            = 10
)

func (o Options) withDefaults() Options {
	set := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	set(&o.MaxIterations, DefaultMaxIterations)
	set(&o.MaxQuotesPerTopic, DefaultMaxQuotesPerTopic)
	set(&o.MaxTotalQuotes, DefaultMaxTotalQuotes)
	set(&o.MaxCandidateEpisodes, DefaultMaxCandidateEpisodes)
	set(&o.MaxSufficiencyQuotes, DefaultMaxSufficiencyQuotes)
	set(&o.MaxTopicListChars, DefaultMaxTopicListChars)
	return o
}

// Navigator runs retrievals. It holds no per-query state and is safe for
// concurrent use when its dependencies are.
type Navigator struct {
	index IndexReader
	gen   Generator
	opts  Options
}

// New creates a navigator.
func New(index IndexReader, gen Generator, opts Options) *Navigator {
	return &Navigator{index: index, gen: gen, opts: opts.withDefaults()}
}

// run carries the per-retrieval identity through the steps.
type run struct {
	id     string
	query  string
	logger *slog.Logger
}

func (n *Navigator) newRun(query string) run {
	id := uuid.NewString()
	return run{id: id, query: query, logger: slog.With("retrieval_id", id)}
}

// Retrieve assembles a quote set for query.
func (n *Navigator) Retrieve(ctx context.Context, query string) (*Result, error) {
	r := n.newRun(query)
	start := time.Now()
	r.logger.Info("retrieval started", "query", query)

	state := NewState()
	if speaker := n.extractSpeaker(ctx, r, state); speaker != "" {
		state = state.WithSpeaker(speaker).
			Traced(StepSpeaker, fmt.Sprintf("Query asks about specific speaker: %s", speaker))
	}

	for {
		r.logger.Info("retrieval iteration", "iteration", state.Iteration()+1)

		var err error
		if state, err = n.pass(ctx, r, state); err != nil {
			return nil, err
		}

		verdict, err := n.assessSufficiency(ctx, r, state)
		if err != nil {
			return nil, err
		}

		if verdict.sufficient || state.Iteration() >= n.opts.MaxIterations-1 {
			state = state.Traced(StepComplete, fmt.Sprintf(
				"Retrieval complete after %d iteration(s). Confidence: %.0f%%",
				state.Iteration()+1, verdict.confidence*100))
			n.observe(r, state, StepComplete, fmt.Sprintf("%d quotes", state.QuoteCount()), start)

			result, err := n.buildResult(ctx, r.id, query, state, verdict.sufficient, verdict.confidence)
			if err != nil {
				return nil, fmt.Errorf("build result: %w", err)
			}
			r.logger.Info("retrieval complete",
				"iterations", result.Iterations,
				"quotes", len(result.Quotes),
				"sufficient", result.Sufficient,
				"confidence", result.Confidence,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return result, nil
		}

		state = state.Traced(StepExpanding, fmt.Sprintf(
			"Insufficient coverage (confidence: %.0f%%). Exploring additional themes: %v",
			verdict.confidence*100, verdict.suggestedThemes)).
			WithSuggestedThemes(verdict.suggestedThemes).
			NextIteration()
	}
}

// RetrieveQuick makes a single pass with no speaker extraction and no
// sufficiency assessment, returning at most topK quotes (default 10).
func (n *Navigator) RetrieveQuick(ctx context.Context, query string, topK int) ([]RetrievedQuote, error) {
	if topK <= 0 {
		topK = DefaultQuickTopK
	}
	r := n.newRun(query)
	r.logger.Info("quick retrieval started", "query", query, "top_k", topK)

	state, err := n.pass(ctx, r, NewState())
	if err != nil {
		return nil, err
	}

	quotes := state.Quotes()
	if len(quotes) > topK {
		quotes = quotes[:topK]
	}
	return quotes, nil
}

// pass runs theme, episode, topic and quote selection once.
func (n *Navigator) pass(ctx context.Context, r run, state State) (State, error) {
	steps := []func(context.Context, run, State) (State, error){
		n.selectThemes,
		n.selectEpisodes,
		n.selectTopics,
		n.retrieveQuotes,
	}
	for _, step := range steps {
		var err error
		if state, err = step(ctx, r, state); err != nil {
			return state, err
		}
	}
	return state, nil
}

// observe reports a completed step to the observer and metrics.
func (n *Navigator) observe(r run, state State, step, detail string, start time.Time) {
	d := time.Since(start)
	n.opts.Metrics.RecordTiming(metrics.OpNavigationStep, d)
	r.logger.Debug("navigation step", "step", step, "iteration", state.Iteration()+1, "detail", detail, "duration_ms", d.Milliseconds())
	if n.opts.Observer != nil {
		n.opts.Observer(Event{
			RetrievalID: r.id,
			Step:        step,
			Iteration:   state.Iteration() + 1,
			Detail:      detail,
			Duration:    d,
		})
	}
}
