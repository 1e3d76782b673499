package models

import (
	"fmt"
	"strings"
)

// Quote is the level-4 record: a verbatim attributed excerpt.
// QuoteID has the form {topic_id}_q{k}.
type Quote struct {
	QuoteID     string `json:"quote_id" yaml:"quote_id"`
	TopicID     string `json:"topic_id" yaml:"topic_id"`
	TopicTitle  string `json:"topic_title,omitempty" yaml:"topic_title,omitempty"`
	Text        string `json:"text" yaml:"text"`
	Speaker     string `json:"speaker" yaml:"speaker"`
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
	YouTubeLink string `json:"youtube_link,omitempty" yaml:"youtube_link,omitempty"`
	Context     string `json:"context,omitempty" yaml:"context,omitempty"`
	InsightType string `json:"insight_type,omitempty" yaml:"insight_type,omitempty"`
}

// Validate checks id shape, topic ownership and, when episodeID is
// non-empty, episode ownership.
func (q Quote) Validate(episodeID string) error {
	if strings.TrimSpace(q.QuoteID) == "" {
		return fmt.Errorf("%w: quote without quote_id", ErrInvalidRecord)
	}
	topicID, ok := TopicIDFromQuoteID(q.QuoteID)
	if !ok {
		return fmt.Errorf("%w: quote id %q has no _q segment", ErrInvalidRecord, q.QuoteID)
	}
	if q.TopicID != "" && q.TopicID != topicID {
		return fmt.Errorf("%w: quote %q claims topic %q", ErrInvalidRecord, q.QuoteID, q.TopicID)
	}
	if episodeID != "" {
		owner, ok := EpisodeIDFromTopicID(topicID)
		if !ok || owner != episodeID {
			return fmt.Errorf("%w: quote %q does not belong to episode %q", ErrInvalidRecord, q.QuoteID, episodeID)
		}
	}
	return nil
}

// OwningTopicID returns topic_id, deriving it from the quote id when the
// builder left it empty.
func (q Quote) OwningTopicID() string {
	if q.TopicID != "" {
		return q.TopicID
	}
	id, _ := TopicIDFromQuoteID(q.QuoteID)
	return id
}

// EpisodeID returns the owning episode id, or "" if the ids are malformed.
func (q Quote) EpisodeID() string {
	id, _ := EpisodeIDFromTopicID(q.OwningTopicID())
	return id
}
