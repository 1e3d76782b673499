package index

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/raphaelgruber/podsearch/internal/metrics"
	"github.com/raphaelgruber/podsearch/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingSource counts reads per path and can delay them.
type countingSource struct {
	Source
	delay time.Duration

	mu    sync.Mutex
	reads map[string]int
}

func newCountingSource(src Source) *countingSource {
	return &countingSource{Source: src, reads: map[string]int{}}
}

func (c *countingSource) Read(ctx context.Context, path string) ([]byte, error) {
	c.mu.Lock()
	c.reads[path]++
	c.mu.Unlock()
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.Source.Read(ctx, path)
}

func (c *countingSource) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[path]
}

// memSource serves documents from a map.
type memSource map[string]string

func (m memSource) Read(_ context.Context, path string) ([]byte, error) {
	doc, ok := m[path]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(doc), nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(NewFileSource("testdata/index"), nil)
}

func TestEpisodeIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	episodes, err := store.EpisodeIndex(ctx)
	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, "Sean Ellis", episodes["sean-ellis"].Guest)
	assert.Equal(t, []string{"40% test", "ICE scoring", "North star metric", "Growth loops"}, episodes["sean-ellis"].NotableFrameworks)

	// mutating the returned map must not affect the cache
	delete(episodes, "sean-ellis")
	again, err := store.EpisodeIndex(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 3)
}

func TestThemes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ids, err := store.ThemeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"product-market-fit", "growth", "retired-theme"}, ids)

	theme, err := store.Theme(ctx, "product-market-fit")
	require.NoError(t, err)
	assert.Equal(t, "Product-Market Fit", theme.Name)
	assert.Equal(t, 2, theme.NumEpisodes())

	_, err = store.Theme(ctx, "retired-theme")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Theme(ctx, "../episode_index")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAllThemesSkipsMissing(t *testing.T) {
	themes, err := newTestStore(t).AllThemes(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, th := range themes {
		ids = append(ids, th.ID)
	}
	assert.Equal(t, []string{"product-market-fit", "growth"}, ids)
}

func TestTopicsAndQuotes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	t.Run("topics", func(t *testing.T) {
		topics, err := store.Topics(ctx, "sean-ellis")
		require.NoError(t, err)
		require.Len(t, topics, 2)
		assert.Equal(t, "sean-ellis_t1", topics[0].TopicID)
		assert.Equal(t, "00:05:10", topics[0].TimestampStart)
	})

	t.Run("missing episode yields empty", func(t *testing.T) {
		topics, err := store.Topics(ctx, "matt_taylor")
		require.NoError(t, err)
		assert.NotNil(t, topics)
		assert.Empty(t, topics)

		quotes, err := store.Quotes(ctx, "no-such-episode")
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})

	t.Run("quotes for topic", func(t *testing.T) {
		quotes, err := store.QuotesForTopic(ctx, "sean-ellis_t1")
		require.NoError(t, err)
		require.Len(t, quotes, 2)
		for _, q := range quotes {
			assert.Equal(t, "sean-ellis_t1", q.TopicID)
		}

		quotes, err = store.QuotesForTopic(ctx, "not-a-topic")
		require.NoError(t, err)
		assert.Empty(t, quotes)
	})

	t.Run("topic lookup", func(t *testing.T) {
		topic, ok, err := store.Topic(ctx, "rahul-vohra_t1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "The PMF engine", topic.Title)

		_, ok, err = store.Topic(ctx, "rahul-vohra_t9")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCacheLoadsOnce(t *testing.T) {
	ctx := context.Background()
	src := newCountingSource(NewFileSource("testdata/index"))
	collector := metrics.NewCollector()
	store := NewStore(src, collector)

	for i := 0; i < 3; i++ {
		_, err := store.Topics(ctx, "sean-ellis")
		require.NoError(t, err)
		_, err = store.Topics(ctx, "matt_taylor")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, src.count(TopicsPath("sean-ellis")))
	assert.Equal(t, 1, src.count(TopicsPath("matt_taylor")), "missing documents are cached too")
	assert.Equal(t, int64(2), collector.Snapshot().IndexLoad.Count)

	store.ClearCache()
	assert.Equal(t, 0, store.CacheEntries())

	_, err := store.Topics(ctx, "sean-ellis")
	require.NoError(t, err)
	assert.Equal(t, 2, src.count(TopicsPath("sean-ellis")))
}

func TestConcurrentFirstLoadCollapsed(t *testing.T) {
	src := newCountingSource(NewFileSource("testdata/index"))
	src.delay = 20 * time.Millisecond
	store := NewStore(src, nil)

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.EpisodeIndex(context.Background()); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Equal(t, 1, src.count(EpisodeIndexPath))
}

// gatedSource blocks every read until release is closed and fails reads
// whose context is already done.
type gatedSource struct {
	Source
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedSource) Read(ctx context.Context, path string) ([]byte, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.Source.Read(ctx, path)
}

func TestCanceledCallerDoesNotFailSharedLoad(t *testing.T) {
	src := &gatedSource{
		Source:  NewFileSource("testdata/index"),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := NewStore(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := store.EpisodeIndex(ctx)
		first <- err
	}()
	<-src.started

	second := make(chan error, 1)
	go func() {
		_, err := store.EpisodeIndex(context.Background())
		second <- err
	}()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(src.release)
	require.NoError(t, <-second)

	episodes, err := store.EpisodeIndex(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, episodes)
}

func TestValidationErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		src  memSource
		call func(*Store) error
	}{
		{
			name: "quote with foreign topic",
			src: memSource{QuotesPath("ep"): `{"episode_id":"ep","quotes":[{"quote_id":"ep_t1_q1","topic_id":"ep_t2"}]}`},
			call: func(s *Store) error { _, err := s.Quotes(ctx, "ep"); return err },
		},
		{
			name: "topic without segment",
			src:  memSource{TopicsPath("ep"): `{"episode_id":"ep","topics":[{"topic_id":"ep-intro"}]}`},
			call: func(s *Store) error { _, err := s.Topics(ctx, "ep"); return err },
		},
		{
			name: "future index version",
			src:  memSource{EpisodeIndexPath: `{"version":"2.0","episodes":{}}`},
			call: func(s *Store) error { _, err := s.EpisodeIndex(ctx); return err },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(NewStore(tt.src, nil))
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidRecord), "got %v", err)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		store := NewStore(memSource{QuotesPath("ep"): `{"quotes": [`}, nil)
		_, err := store.Quotes(ctx, "ep")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("missing episode index is not found", func(t *testing.T) {
		_, err := NewStore(memSource{}, nil).EpisodeIndex(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	stats, err := store.Stats(context.Background())
	require.NoError(t, err)

	want := Stats{
		EpisodeCount: 3,
		ThemeCount:   3,
		TopicCount:   3,
		QuoteCount:   4,
	}
	got := stats
	got.CacheEntries = 0
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
	// episode index, theme list, topics+quotes for three episodes
	assert.Equal(t, 8, stats.CacheEntries)
}

func TestSummaries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	summary, err := store.EpisodeSummary(ctx, "rahul-vohra")
	require.NoError(t, err)
	assert.Equal(t, "**Rahul Vohra** - Superhuman's product-market fit engine\nRahul Vohra walks through the engine Superhuman used to find product-market fit.", summary)

	summary, err = store.EpisodeSummary(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "**Unknown** - Unknown\nNo summary available.", summary)

	summary, err = store.ThemeSummary(ctx, "growth")
	require.NoError(t, err)
	assert.Equal(t, "**Growth** (2 episodes)\nGrowth strategy and experimentation", summary)
}

func TestFileSourcePaths(t *testing.T) {
	paths, err := NewFileSource("testdata/index").Paths(context.Background())
	require.NoError(t, err)
	assert.Contains(t, paths, EpisodeIndexPath)
	assert.Contains(t, paths, ThemeListPath)
	assert.Contains(t, paths, QuotesPath("sean-ellis"))
	assert.Len(t, paths, 8)
}
