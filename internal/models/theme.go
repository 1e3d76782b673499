package models

import (
	"fmt"
	"strings"
)

// Theme is the level-2 record: a cross-episode topic tag.
type Theme struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Description      string   `json:"description" yaml:"description"`
	EpisodeCount     int      `json:"episode_count" yaml:"episode_count"`
	Episodes         []string `json:"episodes" yaml:"episodes"`
	Subtopics        []string `json:"subtopics,omitempty" yaml:"subtopics,omitempty"`
	KeyEpisodes      []string `json:"key_episodes,omitempty" yaml:"key_episodes,omitempty"`
	CommonFrameworks []string `json:"common_frameworks,omitempty" yaml:"common_frameworks,omitempty"`
}

// Validate checks that the theme carries an id.
func (t Theme) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: theme without id", ErrInvalidRecord)
	}
	return nil
}

// NumEpisodes prefers the builder's episode_count and falls back to the list length.
func (t Theme) NumEpisodes() int {
	if t.EpisodeCount > 0 {
		return t.EpisodeCount
	}
	return len(t.Episodes)
}
