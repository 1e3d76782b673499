// Package index provides memoized read access to the four-level podcast index.
//
// A Store loads each document from its Source at most once and serves every
// later request from memory until ClearCache is called. Cached values are
// never mutated; slices handed to callers are copies.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/models"
)

// Stats summarizes the index contents.
type Stats struct {
	EpisodeCount int `json:"total_episodes" yaml:"total_episodes"`
	ThemeCount   int `json:"total_themes" yaml:"total_themes"`
	TopicCount   int `json:"total_topics" yaml:"total_topics"`
	QuoteCount   int `json:"total_quotes" yaml:"total_quotes"`
	CacheEntries int `json:"cache_size" yaml:"cache_size"`
}

// Store is a memoizing reader over a Source. Safe for concurrent use.
type Store struct {
	src     Source
	metrics *metrics.Collector

	mu    sync.RWMutex
	cache map[string]any
	group singleflight.Group
}

// NewStore creates a store over src. collector may be nil.
func NewStore(src Source, collector *metrics.Collector) *Store {
	return &Store{
		src:     src,
		metrics: collector,
		cache:   make(map[string]any),
	}
}

// load returns the cached value for path or reads and decodes it once.
// Concurrent first loads of the same path share a single read.
func load[T any](ctx context.Context, s *Store, path string, decode func([]byte) (T, error)) (T, error) {
	return loadOr(ctx, s, path, decode, nil)
}

// loadOr is load with a fallback: when missing is non-nil and the document
// does not exist, missing() is cached in its place.
func loadOr[T any](ctx context.Context, s *Store, path string, decode func([]byte) (T, error), missing func() T) (T, error) {
	s.mu.RLock()
	v, ok := s.cache[path]
	s.mu.RUnlock()
	if ok {
		return v.(T), nil
	}

	// The shared read outlives any single caller; each caller still stops
	// waiting when its own ctx is done.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(path, func() (any, error) {
		s.mu.RLock()
		v, ok := s.cache[path]
		s.mu.RUnlock()
		if ok {
			return v, nil
		}

		start := time.Now()
		data, err := s.src.Read(loadCtx, path)
		s.metrics.Since(metrics.OpIndexLoad, start)

		var val T
		switch {
		case err == nil:
			val, err = decode(data)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		case missing != nil && errors.Is(err, ErrNotFound):
			val = missing()
		default:
			return nil, err
		}

		s.mu.Lock()
		s.cache[path] = val
		s.mu.Unlock()

		slog.Debug("index document loaded", "path", path, "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// EpisodeIndex returns all episodes keyed by id.
func (s *Store) EpisodeIndex(ctx context.Context) (map[string]models.Episode, error) {
	episodes, err := load(ctx, s, EpisodeIndexPath, func(data []byte) (map[string]models.Episode, error) {
		var f models.EpisodeIndexFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if f.Episodes == nil {
			f.Episodes = map[string]models.Episode{}
		}
		return f.Episodes, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load episode index: %w", err)
	}
	return maps.Clone(episodes), nil
}

// Episode returns one episode from the episode index.
func (s *Store) Episode(ctx context.Context, id string) (models.Episode, bool, error) {
	episodes, err := s.EpisodeIndex(ctx)
	if err != nil {
		return models.Episode{}, false, err
	}
	ep, ok := episodes[id]
	return ep, ok, nil
}

// ThemeIDs returns the ids listed in themes/_index.json, in list order.
func (s *Store) ThemeIDs(ctx context.Context) ([]string, error) {
	ids, err := load(ctx, s, ThemeListPath, func(data []byte) ([]string, error) {
		var f models.ThemeListFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		return f.Themes, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load theme list: %w", err)
	}
	return slices.Clone(ids), nil
}

// Theme returns a single theme. A missing theme is an error wrapping ErrNotFound.
func (s *Store) Theme(ctx context.Context, id string) (models.Theme, error) {
	if !validKey(id) {
		return models.Theme{}, fmt.Errorf("load theme %q: %w", id, ErrNotFound)
	}
	theme, err := load(ctx, s, ThemePath(id), func(data []byte) (models.Theme, error) {
		var t models.Theme
		if err := json.Unmarshal(data, &t); err != nil {
			return models.Theme{}, err
		}
		if t.ID == "" {
			t.ID = id
		}
		if err := t.Validate(); err != nil {
			return models.Theme{}, err
		}
		return t, nil
	})
	if err != nil {
		return models.Theme{}, fmt.Errorf("load theme %q: %w", id, err)
	}
	theme.Episodes = slices.Clone(theme.Episodes)
	return theme, nil
}

// AllThemes returns every listed theme in list order. Listed themes whose
// record is missing are skipped with a warning.
func (s *Store) AllThemes(ctx context.Context) ([]models.Theme, error) {
	ids, err := s.ThemeIDs(ctx)
	if err != nil {
		return nil, err
	}

	themes := make([]models.Theme, 0, len(ids))
	for _, id := range ids {
		t, err := s.Theme(ctx, id)
		if errors.Is(err, ErrNotFound) {
			slog.Warn("listed theme missing from index", "theme_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	return themes, nil
}

// Topics returns an episode's topics. A missing record yields an empty slice.
func (s *Store) Topics(ctx context.Context, episodeID string) ([]models.Topic, error) {
	if !validKey(episodeID) {
		return []models.Topic{}, nil
	}
	topics, err := loadOr(ctx, s, TopicsPath(episodeID), func(data []byte) ([]models.Topic, error) {
		var f models.TopicsFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		if err := f.Validate(episodeID); err != nil {
			return nil, err
		}
		return f.Topics, nil
	}, func() []models.Topic { return []models.Topic{} })
	if err != nil {
		return nil, fmt.Errorf("load topics for %q: %w", episodeID, err)
	}
	return slices.Clone(topics), nil
}

// Quotes returns an episode's quotes. A missing record yields an empty slice.
func (s *Store) Quotes(ctx context.Context, episodeID string) ([]models.Quote, error) {
	if !validKey(episodeID) {
		return []models.Quote{}, nil
	}
	quotes, err := loadOr(ctx, s, QuotesPath(episodeID), func(data []byte) ([]models.Quote, error) {
		var f models.QuotesFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		if err := f.Validate(episodeID); err != nil {
			return nil, err
		}
		return f.Quotes, nil
	}, func() []models.Quote { return []models.Quote{} })
	if err != nil {
		return nil, fmt.Errorf("load quotes for %q: %w", episodeID, err)
	}
	return slices.Clone(quotes), nil
}

// QuotesForTopic returns the quotes of the topic's owning episode that
// belong to topicID. A malformed topic id yields an empty slice.
func (s *Store) QuotesForTopic(ctx context.Context, topicID string) ([]models.Quote, error) {
	episodeID, ok := models.EpisodeIDFromTopicID(topicID)
	if !ok {
		return []models.Quote{}, nil
	}
	quotes, err := s.Quotes(ctx, episodeID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Quote, 0, len(quotes))
	for _, q := range quotes {
		if q.OwningTopicID() == topicID {
			out = append(out, q)
		}
	}
	return out, nil
}

// Topic resolves a single topic by id.
func (s *Store) Topic(ctx context.Context, topicID string) (models.Topic, bool, error) {
	episodeID, ok := models.EpisodeIDFromTopicID(topicID)
	if !ok {
		return models.Topic{}, false, nil
	}
	topics, err := s.Topics(ctx, episodeID)
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

// ClearCache drops every memoized document.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// CacheEntries returns the number of memoized documents.
func (s *Store) CacheEntries() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Stats counts episodes, themes, topics and quotes. Computing it loads every
// episode's topics and quotes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	episodes, err := s.EpisodeIndex(ctx)
	if err != nil {
		return Stats{}, err
	}
	themeIDs, err := s.ThemeIDs(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		EpisodeCount: len(episodes),
		ThemeCount:   len(themeIDs),
	}
	for _, id := range slices.Sorted(maps.Keys(episodes)) {
		topics, err := s.Topics(ctx, id)
		if err != nil {
			return Stats{}, err
		}
		quotes, err := s.Quotes(ctx, id)
		if err != nil {
			return Stats{}, err
		}
		stats.TopicCount += len(topics)
		stats.QuoteCount += len(quotes)
	}
	stats.CacheEntries = s.CacheEntries()
	return stats, nil
}

// EpisodeSummary formats an episode as a short markdown paragraph.
// Unknown episodes render with placeholder values.
func (s *Store) EpisodeSummary(ctx context.Context, id string) (string, error) {
	ep, _, err := s.Episode(ctx, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("**%s** - %s\n%s",
		orDefault(ep.Guest, "Unknown"),
		orDefault(ep.Title, "Unknown"),
		orDefault(ep.Summary, "No summary available."),
	), nil
}

// ThemeSummary formats a theme as a short markdown paragraph.
func (s *Store) ThemeSummary(ctx context.Context, id string) (string, error) {
	t, err := s.Theme(ctx, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("**%s** (%d episodes)\n%s",
		orDefault(t.Name, id),
		t.NumEpisodes(),
		orDefault(t.Description, "No description available."),
	), nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
