package navigator

import (
	"fmt"
	"slices"
)

// Level is the hierarchy level the navigator is about to select from.
type Level string

const (
	LevelThemes   Level = "themes"
	LevelEpisodes Level = "episodes"
	LevelTopics   Level = "topics"
	LevelQuotes   Level = "quotes"
)

// State is the per-query navigation state. It is an immutable value:
// every transition returns a new State and never shares mutable backing
// arrays with the receiver.
type State struct {
	level     Level
	themes    []string
	episodes  []string
	topics    []string
	quotes    []RetrievedQuote
	iteration int
	trace     []string
	speaker   string
}

// NewState returns the initial state of a retrieval.
func NewState() State {
	return State{level: LevelThemes}
}

func (s State) Level() Level { return s.level }
func (s State) Themes() []string { return slices.Clone(s.themes) }
func (s State) Episodes() []string { return slices.Clone(s.episodes) }
func (s State) Topics() []string { return slices.Clone(s.topics) }
func (s State) Quotes() []RetrievedQuote { return slices.Clone(s.quotes) }
func (s State) Iteration() int { return s.iteration }
func (s State) Trace() []string { return slices.Clone(s.trace) }
func (s State) Speaker() string { return s.speaker }
func (s State) QuoteCount() int { return len(s.quotes) }
func (s State) ThemeCount() int { return len(s.themes) }

// WithSpeaker records the named speaker extracted from the query.
func (s State) WithSpeaker(name string) State {
	s.speaker = name
	return s
}

// WithThemes unions ids into the selected themes and advances to episode selection.
func (s State) WithThemes(ids []string) State {
	s.themes = union(s.themes, ids)
	s.level = LevelEpisodes
	return s
}

// WithSuggestedThemes unions ids into the selected themes without changing level.
func (s State) WithSuggestedThemes(ids []string) State {
	s.themes = union(s.themes, ids)
	return s
}

// WithEpisodes unions ids into the selected episodes and advances to topic selection.
func (s State) WithEpisodes(ids []string) State {
	s.episodes = union(s.episodes, ids)
	s.level = LevelTopics
	return s
}

// WithTopics unions ids into the selected topics and advances to quote retrieval.
func (s State) WithTopics(ids []string) State {
	s.topics = union(s.topics, ids)
	s.level = LevelQuotes
	return s
}

// WithQuotes replaces the retrieved quotes.
func (s State) WithQuotes(quotes []RetrievedQuote) State {
	s.quotes = slices.Clone(quotes)
	return s
}

// NextIteration starts another pass at theme selection.
func (s State) NextIteration() State {
	s.iteration++
	s.level = LevelThemes
	return s
}

// Traced appends "[step] message" to the reasoning trace.
func (s State) Traced(step, message string) State {
	trace := make([]string, len(s.trace), len(s.trace)+1)
	copy(trace, s.trace)
	s.trace = append(trace, fmt.Sprintf("[%s] %s", step, message))
	return s
}

// union returns a new slice holding existing followed by the ids of add not
// already present, in first-seen order.
func union(existing, add []string) []string {
	out := make([]string, 0, len(existing)+len(add))
	seen := make(map[string]struct{}, len(existing)+len(add))
	for _, list := range [][]string{existing, add} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
