// Package models defines the records of the podcast index hierarchy.
//
// The index has four levels: episodes (L1), themes (L2), topics (L3) and
// quotes (L4). Records are produced by the offline index builder and are
// read-only here; JSON field names match the builder's output.
package models

import (
	"fmt"
	"strings"
)

// Episode is the level-1 record: one transcript's metadata and summary.
type Episode struct {
	ID                string   `json:"id" yaml:"id"`
	Guest             string   `json:"guest" yaml:"guest"`
	Title             string   `json:"title" yaml:"title"`
	PublishDate       string   `json:"publish_date,omitempty" yaml:"publish_date,omitempty"`
	YouTubeURL        string   `json:"youtube_url,omitempty" yaml:"youtube_url,omitempty"`
	VideoID           string   `json:"video_id,omitempty" yaml:"video_id,omitempty"`
	Duration          string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Summary           string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	KeyThemes         []string `json:"key_themes,omitempty" yaml:"key_themes,omitempty"`
	NotableFrameworks []string `json:"notable_frameworks,omitempty" yaml:"notable_frameworks,omitempty"`
	TopicCount        int      `json:"topic_count,omitempty" yaml:"topic_count,omitempty"`
}

// Validate checks the fields the navigator relies on.
func (e Episode) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: episode without id", ErrInvalidRecord)
	}
	return nil
}

// GuestMatches reports whether the guest name and speaker overlap, compared
// case-insensitively as substrings in either direction. Empty names never match.
func (e Episode) GuestMatches(speaker string) bool {
	guest := strings.ToLower(strings.TrimSpace(e.Guest))
	name := strings.ToLower(strings.TrimSpace(speaker))
	if guest == "" || name == "" {
		return false
	}
	return strings.Contains(guest, name) || strings.Contains(name, guest)
}
