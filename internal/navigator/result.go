package navigator

import (
	"context"

	"github.com/raphaelgruber/podsearch/internal/models"
)

// RetrievedQuote is a quote denormalized with its topic's title and summary.
type RetrievedQuote struct {
	models.Quote `yaml:",inline"`
	TopicSummary string `json:"topic_summary,omitempty" yaml:"topic_summary,omitempty"`
}

// ResolvedTopic is a selected topic with its episode's guest and title.
type ResolvedTopic struct {
	models.Topic `yaml:",inline"`
	EpisodeID    string `json:"episode_id" yaml:"episode_id"`
	Guest        string `json:"guest" yaml:"guest"`
	EpisodeTitle string `json:"episode_title" yaml:"episode_title"`
}

// Result is the outcome of one retrieval.
type Result struct {
	RetrievalID    string           `json:"retrieval_id" yaml:"retrieval_id"`
	Query          string           `json:"query" yaml:"query"`
	NamedSpeaker   string           `json:"named_speaker,omitempty" yaml:"named_speaker,omitempty"`
	Quotes         []RetrievedQuote `json:"quotes" yaml:"quotes"`
	Topics         []ResolvedTopic  `json:"topics" yaml:"topics"`
	Episodes       []models.Episode `json:"episodes" yaml:"episodes"`
	Themes         []string         `json:"themes" yaml:"themes"`
	ReasoningTrace []string         `json:"reasoning_trace" yaml:"reasoning_trace"`
	Iterations     int              `json:"iterations" yaml:"iterations"`
	Sufficient     bool             `json:"sufficient" yaml:"sufficient"`
	Confidence     float64          `json:"confidence" yaml:"confidence"`
}

// buildResult resolves the ids accumulated in state into full records and
// deduplicates quotes by id, keeping the first occurrence.
func (n *Navigator) buildResult(ctx context.Context, id, query string, state State, sufficient bool, confidence float64) (*Result, error) {
	episodes, err := n.index.EpisodeIndex(ctx)
	if err != nil {
		return nil, err
	}

	quotes := make([]RetrievedQuote, 0, state.QuoteCount())
	seen := make(map[string]struct{})
	for _, q := range state.quotes {
		if q.QuoteID == "" {
			continue
		}
		if _, dup := seen[q.QuoteID]; dup {
			continue
		}
		seen[q.QuoteID] = struct{}{}
		quotes = append(quotes, q)
	}

	topics := make([]ResolvedTopic, 0, len(state.topics))
	for _, topicID := range state.topics {
		episodeID, ok := models.EpisodeIDFromTopicID(topicID)
		if !ok {
			continue
		}
		topic, found, err := n.findTopic(ctx, episodeID, topicID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		ep := episodes[episodeID]
		topics = append(topics, ResolvedTopic{
			Topic:        topic,
			EpisodeID:    episodeID,
			Guest:        orUnknown(ep.Guest),
			EpisodeTitle: orUnknown(ep.Title),
		})
	}

	resolved := make([]models.Episode, 0, len(state.episodes))
	for _, episodeID := range state.episodes {
		if ep, ok := episodes[episodeID]; ok {
			resolved = append(resolved, ep)
		}
	}

	return &Result{
		RetrievalID:    id,
		Query:          query,
		NamedSpeaker:   state.speaker,
		Quotes:         quotes,
		Topics:         topics,
		Episodes:       resolved,
		Themes:         state.Themes(),
		ReasoningTrace: state.Trace(),
		Iterations:     state.iteration + 1,
		Sufficient:     sufficient,
		Confidence:     confidence,
	}, nil
}

func (n *Navigator) findTopic(ctx context.Context, episodeID, topicID string) (models.Topic, bool, error) {
	topics, err := n.index.Topics(ctx, episodeID)
	if err != nil {
		return models.Topic{}, false, err
	}
	for _, t := range topics {
		if t.TopicID == topicID {
			return t, true, nil
		}
	}
	return models.Topic{}, false, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
