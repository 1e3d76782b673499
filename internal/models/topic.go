package models

import (
	"fmt"
	"strings"
)

// Topic is the level-3 record: a time segment within one episode.
// TopicID has the form {episode_id}_t{n}.
type Topic struct {
	TopicID        string   `json:"topic_id" yaml:"topic_id"`
	Title          string   `json:"title" yaml:"title"`
	Summary        string   `json:"summary" yaml:"summary"`
	TimestampStart string   `json:"timestamp_start" yaml:"timestamp_start"`
	TimestampEnd   string   `json:"timestamp_end" yaml:"timestamp_end"`
	Speakers       []string `json:"speakers,omitempty" yaml:"speakers,omitempty"`
	Themes         []string `json:"themes,omitempty" yaml:"themes,omitempty"`
	QuoteCount     int      `json:"quote_count,omitempty" yaml:"quote_count,omitempty"`
}

// Validate checks the id shape and, when episodeID is non-empty, ownership.
func (t Topic) Validate(episodeID string) error {
	if strings.TrimSpace(t.TopicID) == "" {
		return fmt.Errorf("%w: topic without topic_id", ErrInvalidRecord)
	}
	owner, ok := EpisodeIDFromTopicID(t.TopicID)
	if !ok {
		return fmt.Errorf("%w: topic id %q has no _t segment", ErrInvalidRecord, t.TopicID)
	}
	if episodeID != "" && owner != episodeID {
		return fmt.Errorf("%w: topic %q does not belong to episode %q", ErrInvalidRecord, t.TopicID, episodeID)
	}
	return nil
}

// EpisodeID returns the owning episode id, or "" if the id is malformed.
func (t Topic) EpisodeID() string {
	id, _ := EpisodeIDFromTopicID(t.TopicID)
	return id
}
