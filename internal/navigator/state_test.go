package navigator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/podsearch/internal/models"
)

func TestStateTransitionsDoNotMutate(t *testing.T) {
	s0 := NewState()
	s1 := s0.WithThemes([]string{"a", "b"})
	s2 := s1.WithThemes([]string{"b", "c"})

	assert.Equal(t, LevelThemes, s0.Level())
	assert.Empty(t, s0.Themes())
	assert.Equal(t, []string{"a", "b"}, s1.Themes())
	assert.Equal(t, []string{"a", "b", "c"}, s2.Themes())
	assert.Equal(t, LevelEpisodes, s2.Level())

	themes := s2.Themes()
	themes[0] = "mutated"
	assert.Equal(t, "a", s2.Themes()[0])

	t1 := s1.Traced("Themes", "first")
	t2 := t1.Traced("Themes", "second")
	t3 := t1.Traced("Themes", "branch")
	assert.Equal(t, []string{"[Themes] first"}, t1.Trace())
	assert.Equal(t, []string{"[Themes] first", "[Themes] second"}, t2.Trace())
	assert.Equal(t, []string{"[Themes] first", "[Themes] branch"}, t3.Trace())

	quotes := []RetrievedQuote{{Quote: models.Quote{QuoteID: "x_t1_q1"}}}
	s3 := s2.WithQuotes(quotes)
	quotes[0].QuoteID = "changed"
	assert.Equal(t, "x_t1_q1", s3.Quotes()[0].QuoteID)
}

func TestStateLevelsAndIteration(t *testing.T) {
	s := NewState().
		WithSpeaker("Sean Ellis").
		WithThemes([]string{"pmf"}).
		WithEpisodes([]string{"sean-ellis"}).
		WithTopics([]string{"sean-ellis_t1"})
	assert.Equal(t, LevelQuotes, s.Level())
	assert.Equal(t, "Sean Ellis", s.Speaker())

	next := s.WithSuggestedThemes([]string{"growth", "pmf"}).NextIteration()
	assert.Equal(t, LevelThemes, next.Level())
	assert.Equal(t, 1, next.Iteration())
	assert.Equal(t, []string{"pmf", "growth"}, next.Themes())
	assert.Equal(t, 0, s.Iteration())
}

func TestCandidateEpisodes(t *testing.T) {
	tests := []struct {
		name    string
		speaker string
		themes  []string
		limit   int
		want    []string
	}{
		{name: "no speaker keeps theme order", themes: []string{"growth", "product-market-fit"}, want: []string{"sean-ellis", "matt_taylor", "rahul-vohra"}},
		{name: "speaker match moves first", speaker: "rahul vohra", themes: []string{"product-market-fit"}, want: []string{"rahul-vohra", "sean-ellis"}},
		{name: "speaker outside themes is added", speaker: "Rahul", themes: []string{"growth"}, want: []string{"rahul-vohra", "sean-ellis", "matt_taylor"}},
		{name: "match survives truncation", speaker: "Rahul", themes: []string{"growth"}, limit: 1, want: []string{"rahul-vohra"}},
		{name: "name containing guest matches", speaker: "Sean Ellis of GrowthHackers", themes: []string{"growth"}, want: []string{"sean-ellis", "matt_taylor"}},
		{name: "unknown speaker leaves pool", speaker: "Taylor", themes: []string{"growth"}, want: []string{"sean-ellis", "matt_taylor"}},
		{name: "speaker with no themes", speaker: "Sean", want: []string{"sean-ellis"}},
	}

	ctx := t.Context()
	store := fixtureStore()
	episodes, err := store.EpisodeIndex(ctx)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := New(store, newScripted(nil), Options{MaxCandidateEpisodes: tt.limit})
			state := NewState().WithSpeaker(tt.speaker).WithThemes(tt.themes)

			got, err := nav.candidateEpisodes(ctx, nav.newRun("q"), state, episodes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdjustConfidence(t *testing.T) {
	tests := []struct {
		name   string
		base   float64
		quotes int
		themes int
		want   float64
	}{
		{name: "no bonus", base: 0.5, want: 0.5},
		{name: "quote bonus", base: 0.5, quotes: 10, want: 0.6},
		{name: "quote bonus capped", base: 0.1, quotes: 50, want: 0.4},
		{name: "theme bonus capped", base: 0.1, themes: 5, want: 0.3},
		{name: "total capped", base: 0.9, quotes: 30, themes: 2, want: 1},
		{name: "negative base clamped", base: -3, quotes: 1, want: 0.01},
		{name: "large base clamped", base: 7, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, adjustConfidence(tt.base, tt.quotes, tt.themes), 1e-9)
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("code fence", func(t *testing.T) {
		resp, err := decodeResponse[themeResponse](StepThemes, "```json\n{\"selected_themes\": [\"a\"]}\n```", themeSchema)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, resp.SelectedThemes)
	})

	t.Run("null speaker", func(t *testing.T) {
		resp, err := decodeResponse[speakerResponse](StepSpeaker, `{"named_speaker": null, "is_speaker_specific": false}`, speakerSchema)
		require.NoError(t, err)
		assert.Nil(t, resp.NamedSpeaker)
	})

	t.Run("optional field wrong type", func(t *testing.T) {
		_, err := decodeResponse[episodeResponse](StepEpisodes, `{"selected_episodes": [], "speaker_matched": "yes"}`, episodeSchema)
		assert.ErrorIs(t, err, ErrMalformedOutput)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := decodeResponse[topicResponse](StepTopics, "", topicSchema)
		assert.ErrorIs(t, err, ErrMalformedOutput)
	})
}

func TestPromptLines(t *testing.T) {
	ep := models.Episode{
		ID:                "sean-ellis",
		Summary:           strings.Repeat("x", 250),
		NotableFrameworks: []string{"a", "b", "c", "d"},
	}
	line := episodeLine(ep)
	assert.Contains(t, line, "- **sean-ellis** (Unknown): ")
	assert.Contains(t, line, "... [Frameworks: a, b, c]")

	topic := models.Topic{TopicID: "x_t1", Title: "Title", Summary: "short", TimestampStart: "00:01:00", TimestampEnd: "00:02:00"}
	assert.Equal(t, "- **x_t1** (Guest): Title\n  Summary: short [00:01:00 - 00:02:00]", topicLine(topic, "Guest"))

	assert.Equal(t, "héllo", truncateRunes("héllo", 5))
	assert.Equal(t, "hé...", truncateRunes("héllo", 2))
}
