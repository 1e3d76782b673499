package models

import "fmt"

// SupportedMajorVersion is the newest index format major version understood here.
const SupportedMajorVersion = 1

// EpisodeIndexFile is the on-disk shape of episode_index.json.
type EpisodeIndexFile struct {
	Version       string             `json:"version"`
	GeneratedAt   string             `json:"generated_at,omitempty"`
	TotalEpisodes int                `json:"total_episodes,omitempty"`
	Episodes      map[string]Episode `json:"episodes"`
}

// Validate checks the version and every episode; map keys must equal ids.
func (f EpisodeIndexFile) Validate() error {
	if err := checkVersion(f.Version); err != nil {
		return err
	}
	for key, ep := range f.Episodes {
		if err := ep.Validate(); err != nil {
			return fmt.Errorf("episode %q: %w", key, err)
		}
		if ep.ID != key {
			return fmt.Errorf("%w: episode keyed %q has id %q", ErrInvalidRecord, key, ep.ID)
		}
	}
	return nil
}

// ThemeListFile is the on-disk shape of themes/_index.json.
type ThemeListFile struct {
	Themes []string `json:"themes"`
	Total  int      `json:"total,omitempty"`
}

// TopicsFile is the on-disk shape of topics/{episode_id}.json.
type TopicsFile struct {
	EpisodeID string  `json:"episode_id"`
	Topics    []Topic `json:"topics"`
}

// Validate checks every topic against the owning episode.
func (f TopicsFile) Validate(episodeID string) error {
	for i, t := range f.Topics {
		if err := t.Validate(episodeID); err != nil {
			return fmt.Errorf("topic %d: %w", i, err)
		}
	}
	return nil
}

// QuotesFile is the on-disk shape of quotes/{episode_id}.json.
type QuotesFile struct {
	EpisodeID string  `json:"episode_id"`
	Quotes    []Quote `json:"quotes"`
}

// Validate checks every quote against the owning episode.
func (f QuotesFile) Validate(episodeID string) error {
	for i, q := range f.Quotes {
		if err := q.Validate(episodeID); err != nil {
			return fmt.Errorf("quote %d: %w", i, err)
		}
	}
	return nil
}

// checkVersion accepts an empty version (pre-versioned builds) and any
// "N" or "N.x" with N <= SupportedMajorVersion.
func checkVersion(v string) error {
	if v == "" {
		return nil
	}
	var major int
	if _, err := fmt.Sscanf(v, "%d", &major); err != nil {
		return fmt.Errorf("%w: unparsable index version %q", ErrInvalidRecord, v)
	}
	if major > SupportedMajorVersion {
		return fmt.Errorf("%w: index version %q is newer than supported %d.x", ErrInvalidRecord, v, SupportedMajorVersion)
	}
	return nil
}
