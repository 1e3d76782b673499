package navigator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/models"
)

const (
	episodeSummaryRunes = 200
	topicSummaryRunes   = 150
	maxFrameworks       = 3
)

// verdict is the outcome of a sufficiency assessment.
type verdict struct {
	sufficient      bool
	confidence      float64
	suggestedThemes []string
}

// extractSpeaker asks whether the query names a person. It never fails:
// any error means no named speaker.
func (n *Navigator) extractSpeaker(ctx context.Context, r run, state State) string {
	start := time.Now()
	raw, err := n.gen.GenerateJSON(ctx, fmt.Sprintf(speakerPrompt, r.query))
	if err != nil {
		r.logger.Warn("speaker extraction failed", "error", err)
		n.observe(r, state, StepSpeaker, "none", start)
		return ""
	}
	resp, err := decodeResponse[speakerResponse](StepSpeaker, raw, speakerSchema)
	if err != nil {
		r.logger.Warn("speaker extraction output ignored", "error", err)
		n.observe(r, state, StepSpeaker, "none", start)
		return ""
	}

	speaker := ""
	if resp.IsSpeakerSpecific && resp.NamedSpeaker != nil {
		speaker = strings.TrimSpace(*resp.NamedSpeaker)
	}
	n.observe(r, state, StepSpeaker, orDefault(speaker, "none"), start)
	return speaker
}

func (n *Navigator) selectThemes(ctx context.Context, r run, state State) (State, error) {
	start := time.Now()
	themes, err := n.index.AllThemes(ctx)
	if err != nil {
		return state, fmt.Errorf("select themes: %w", err)
	}

	valid := make([]string, 0, len(themes))
	lines := make([]string, 0, len(themes))
	for _, t := range themes {
		valid = append(valid, t.ID)
		lines = append(lines, fmt.Sprintf("- **%s**: %s (%d episodes)",
			t.ID, orDefault(t.Description, "No description"), t.NumEpisodes()))
	}

	raw, err := n.gen.GenerateJSON(ctx, fmt.Sprintf(themePrompt, r.query, strings.Join(lines, "\n")))
	if err != nil {
		return state, fmt.Errorf("select themes: %w", err)
	}
	resp, err := decodeResponse[themeResponse](StepThemes, raw, themeSchema)
	if err != nil {
		return state, err
	}

	selected := n.keepKnown(r, StepThemes, resp.SelectedThemes, setOf(valid))
	state = state.WithThemes(selected).
		Traced(StepThemes, fmt.Sprintf("Selected: %v. Reasoning: %s", selected, orDefault(resp.Reasoning, "N/A")))
	n.observe(r, state, StepThemes, strings.Join(selected, ", "), start)
	return state, nil
}

func (n *Navigator) selectEpisodes(ctx context.Context, r run, state State) (State, error) {
	start := time.Now()
	index, err := n.index.EpisodeIndex(ctx)
	if err != nil {
		return state, fmt.Errorf("select episodes: %w", err)
	}

	candidates, err := n.candidateEpisodes(ctx, r, state, index)
	if err != nil {
		return state, fmt.Errorf("select episodes: %w", err)
	}
	if len(candidates) == 0 {
		state = state.WithEpisodes(nil).Traced(StepEpisodes, "No candidate episodes")
		n.observe(r, state, StepEpisodes, "no candidates", start)
		return state, nil
	}

	lines := make([]string, 0, len(candidates))
	for _, id := range candidates {
		lines = append(lines, episodeLine(index[id]))
	}

	prompt := fmt.Sprintf(episodePrompt, r.query, orDefault(state.Speaker(), "None"),
		strings.Join(state.Themes(), ", "), strings.Join(lines, "\n"))
	raw, err := n.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		return state, fmt.Errorf("select episodes: %w", err)
	}
	resp, err := decodeResponse[episodeResponse](StepEpisodes, raw, episodeSchema)
	if err != nil {
		return state, err
	}

	known := make(map[string]struct{}, len(index))
	for id := range index {
		known[id] = struct{}{}
	}
	selected := n.keepKnown(r, StepEpisodes, resp.SelectedEpisodes, known)

	msg := fmt.Sprintf("Selected: %v. Reasoning: %s", selected, orDefault(resp.Reasoning, "N/A"))
	if state.Speaker() != "" {
		msg = fmt.Sprintf("Selected: %v (speaker matched: %t). Reasoning: %s",
			selected, resp.SpeakerMatched, orDefault(resp.Reasoning, "N/A"))
	}
	state = state.WithEpisodes(selected).Traced(StepEpisodes, msg)
	n.observe(r, state, StepEpisodes, strings.Join(selected, ", "), start)
	return state, nil
}

// candidateEpisodes builds the ordered episode pool offered to the model.
// Episodes of the selected themes come first in theme order. With a named
// speaker, guest matches are moved to the front; when none of the theme
// episodes match, every indexed episode is scanned for the guest. The pool
// is truncated only after ordering, so speaker matches always survive.
func (n *Navigator) candidateEpisodes(ctx context.Context, r run, state State, index map[string]models.Episode) ([]string, error) {
	var pool []string
	for _, themeID := range state.Themes() {
		theme, err := n.index.Theme(ctx, themeID)
		if err != nil {
			return nil, err
		}
		for _, id := range theme.Episodes {
			if _, ok := index[id]; ok {
				pool = append(pool, id)
			}
		}
	}
	pool = union(nil, pool)

	if speaker := state.Speaker(); speaker != "" {
		var matches, others []string
		for _, id := range pool {
			if index[id].GuestMatches(speaker) {
				matches = append(matches, id)
			} else {
				others = append(others, id)
			}
		}

		if len(matches) == 0 {
			for _, id := range sortedKeys(index) {
				if index[id].GuestMatches(speaker) {
					matches = append(matches, id)
				}
			}
			if len(matches) > 0 {
				r.logger.Info("speaker episodes added outside selected themes", "speaker", speaker, "episodes", matches)
			}
		}
		pool = union(matches, others)
	}

	if len(pool) > n.opts.MaxCandidateEpisodes {
		pool = pool[:n.opts.MaxCandidateEpisodes]
	}
	return pool, nil
}

func (n *Navigator) selectTopics(ctx context.Context, r run, state State) (State, error) {
	start := time.Now()
	index, err := n.index.EpisodeIndex(ctx)
	if err != nil {
		return state, fmt.Errorf("select topics: %w", err)
	}

	offered := make(map[string]struct{})
	var lines []string
	for _, episodeID := range state.Episodes() {
		topics, err := n.index.Topics(ctx, episodeID)
		if err != nil {
			return state, fmt.Errorf("select topics: %w", err)
		}
		guest := orDefault(index[episodeID].Guest, "Unknown")
		for _, t := range topics {
			offered[t.TopicID] = struct{}{}
			lines = append(lines, topicLine(t, guest))
		}
	}
	if len(lines) == 0 {
		state = state.WithTopics(nil).Traced(StepTopics, "No topics available for selected episodes")
		n.observe(r, state, StepTopics, "no topics", start)
		return state, nil
	}

	list := truncateRunes(strings.Join(lines, "\n"), n.opts.MaxTopicListChars)
	raw, err := n.gen.GenerateJSON(ctx, fmt.Sprintf(topicPrompt, r.query, list))
	if err != nil {
		return state, fmt.Errorf("select topics: %w", err)
	}
	resp, err := decodeResponse[topicResponse](StepTopics, raw, topicSchema)
	if err != nil {
		return state, err
	}

	selected := n.keepKnown(r, StepTopics, resp.SelectedTopics, offered)
	state = state.WithTopics(selected).
		Traced(StepTopics, fmt.Sprintf("Selected: %v. Reasoning: %s", selected, orDefault(resp.Reasoning, "N/A")))
	n.observe(r, state, StepTopics, strings.Join(selected, ", "), start)
	return state, nil
}

// retrieveQuotes recomputes the quote set over every selected topic.
func (n *Navigator) retrieveQuotes(ctx context.Context, r run, state State) (State, error) {
	start := time.Now()
	var quotes []RetrievedQuote
	for _, topicID := range state.Topics() {
		if len(quotes) >= n.opts.MaxTotalQuotes {
			break
		}
		episodeID, ok := models.EpisodeIDFromTopicID(topicID)
		if !ok {
			continue
		}
		topic, resolved, err := n.findTopic(ctx, episodeID, topicID)
		if err != nil {
			return state, fmt.Errorf("retrieve quotes: %w", err)
		}
		topicQuotes, err := n.index.QuotesForTopic(ctx, topicID)
		if err != nil {
			return state, fmt.Errorf("retrieve quotes: %w", err)
		}
		if len(topicQuotes) > n.opts.MaxQuotesPerTopic {
			topicQuotes = topicQuotes[:n.opts.MaxQuotesPerTopic]
		}
		for _, q := range topicQuotes {
			if resolved {
				q.TopicTitle = topic.Title
			}
			quotes = append(quotes, RetrievedQuote{Quote: q, TopicSummary: topic.Summary})
		}
	}
	if len(quotes) > n.opts.MaxTotalQuotes {
		quotes = quotes[:n.opts.MaxTotalQuotes]
	}

	state = state.WithQuotes(quotes).
		Traced(StepQuotes, fmt.Sprintf("Retrieved %d quotes from %d topics", len(quotes), len(state.Topics())))
	n.observe(r, state, StepQuotes, fmt.Sprintf("%d quotes", len(quotes)), start)
	return state, nil
}

func (n *Navigator) assessSufficiency(ctx context.Context, r run, state State) (verdict, error) {
	start := time.Now()
	quotes := state.Quotes()
	if len(quotes) == 0 {
		n.observe(r, state, StepSufficiency, "no quotes", start)
		return verdict{}, nil
	}

	if len(quotes) > n.opts.MaxSufficiencyQuotes {
		quotes = quotes[:n.opts.MaxSufficiencyQuotes]
	}
	blocks := make([]string, 0, len(quotes))
	for _, q := range quotes {
		blocks = append(blocks, fmt.Sprintf("**%s** (%s)\n> \"%s\"\nContext: %s",
			q.Speaker, q.TopicTitle, q.Text, q.Context))
	}

	raw, err := n.gen.GenerateJSON(ctx, fmt.Sprintf(sufficiencyPrompt, r.query, strings.Join(blocks, "\n\n")))
	if err != nil {
		return verdict{}, fmt.Errorf("assess sufficiency: %w", err)
	}
	resp, err := decodeResponse[sufficiencyResponse](StepSufficiency, raw, sufficiencySchema)
	if err != nil {
		return verdict{}, err
	}

	v := verdict{
		sufficient: resp.Sufficient,
		confidence: adjustConfidence(resp.Confidence, state.QuoteCount(), state.ThemeCount()),
	}
	if len(resp.SuggestedThemes) > 0 {
		themes, err := n.index.AllThemes(ctx)
		if err != nil {
			return verdict{}, fmt.Errorf("assess sufficiency: %w", err)
		}
		known := make(map[string]struct{}, len(themes))
		for _, t := range themes {
			known[t.ID] = struct{}{}
		}
		v.suggestedThemes = n.keepKnown(r, StepSufficiency, resp.SuggestedThemes, known)
	}

	n.observe(r, state, StepSufficiency, fmt.Sprintf("sufficient=%t confidence=%.2f", v.sufficient, v.confidence), start)
	return v, nil
}

// adjustConfidence clamps the model's confidence into [0,1] and adds the
// coverage bonus for quote and theme counts, capped at 1.
func adjustConfidence(base float64, quotes, themes int) float64 {
	base = min(max(base, 0), 1)
	bonus := min(0.3, 0.01*float64(quotes)) + min(0.2, 0.1*float64(themes))
	return min(1, base+bonus)
}

// keepKnown filters ids to those in known, preserving order. Dropped ids
// are logged and counted as hallucinations.
func (n *Navigator) keepKnown(r run, step string, ids []string, known map[string]struct{}) []string {
	kept := make([]string, 0, len(ids))
	var dropped []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := known[id]; ok {
			kept = append(kept, id)
		} else {
			dropped = append(dropped, id)
		}
	}
	if len(dropped) > 0 {
		r.logger.Warn("discarded unknown ids from generation output", "step", step, "ids", dropped)
		n.opts.Metrics.Add(metrics.CounterHallucinatedIDs, int64(len(dropped)))
	}
	return union(nil, kept)
}

func episodeLine(ep models.Episode) string {
	line := fmt.Sprintf("- **%s** (%s): %s", ep.ID, orDefault(ep.Guest, "Unknown"), truncateRunes(ep.Summary, episodeSummaryRunes))
	if len(ep.NotableFrameworks) > 0 {
		frameworks := ep.NotableFrameworks[:min(len(ep.NotableFrameworks), maxFrameworks)]
		line += fmt.Sprintf(" [Frameworks: %s]", strings.Join(frameworks, ", "))
	}
	return line
}

func topicLine(t models.Topic, guest string) string {
	return fmt.Sprintf("- **%s** (%s): %s\n  Summary: %s [%s - %s]",
		t.TopicID, guest, t.Title, truncateRunes(t.Summary, topicSummaryRunes), t.TimestampStart, t.TimestampEnd)
}

// truncateRunes cuts s to at most limit runes, marking the cut with "...".
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

func setOf(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func sortedKeys(m map[string]models.Episode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
