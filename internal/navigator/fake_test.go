package navigator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/raphaelgruber/podsearch/internal/index"
	"github.com/raphaelgruber/podsearch/internal/models"
)

// Prompt markers identifying each step.
var stepMarkers = map[string]string{
	StepSpeaker:     "Extract any named speaker",
	StepThemes:      "You are navigating a research index",
	StepEpisodes:    "You are selecting podcast episodes",
	StepTopics:      "You are selecting specific discussion topics",
	StepSufficiency: "You are assessing whether enough information",
}

// scriptedGenerator answers each step from a queue of canned responses.
// The last response of a queue repeats once the queue is drained.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string]error
	prompts   map[string][]string
}

func newScripted(responses map[string][]string) *scriptedGenerator {
	return &scriptedGenerator{
		responses: responses,
		errs:      make(map[string]error),
		prompts:   make(map[string][]string),
	}
}

func (g *scriptedGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	step := ""
	for name, marker := range stepMarkers {
		if strings.HasPrefix(prompt, marker) {
			step = name
		}
	}
	if step == "" {
		return "", errors.New("unrecognized prompt")
	}
	g.prompts[step] = append(g.prompts[step], prompt)

	if err := g.errs[step]; err != nil {
		return "", err
	}
	queue := g.responses[step]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted response for %s", step)
	}
	resp := queue[0]
	if len(queue) > 1 {
		g.responses[step] = queue[1:]
	}
	return resp, nil
}

func (g *scriptedGenerator) calls(step string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts[step]...)
}

func fixtureStore() *index.Store {
	return index.NewStore(index.NewFileSource("../index/testdata/index"), nil)
}

// memIndex is an in-memory IndexReader for generated corpora.
type memIndex struct {
	episodes map[string]models.Episode
	themes   []models.Theme
	topics   map[string][]models.Topic
	quotes   map[string][]models.Quote
}

func (m *memIndex) EpisodeIndex(context.Context) (map[string]models.Episode, error) {
	return m.episodes, nil
}

func (m *memIndex) AllThemes(context.Context) ([]models.Theme, error) {
	return m.themes, nil
}

func (m *memIndex) Theme(_ context.Context, id string) (models.Theme, error) {
	for _, t := range m.themes {
		if t.ID == id {
			return t, nil
		}
	}
	return models.Theme{}, index.ErrNotFound
}

func (m *memIndex) Topics(_ context.Context, episodeID string) ([]models.Topic, error) {
	return m.topics[episodeID], nil
}

func (m *memIndex) QuotesForTopic(_ context.Context, topicID string) ([]models.Quote, error) {
	return m.quotes[topicID], nil
}

// bigIndex builds one theme and one episode with the given number of topics,
// each holding quotesPerTopic quotes.
func bigIndex(topicCount, quotesPerTopic int) *memIndex {
	m := &memIndex{
		episodes: map[string]models.Episode{"big": {ID: "big", Guest: "Big Guest", Title: "Big episode"}},
		themes:   []models.Theme{{ID: "everything", Description: "All of it", Episodes: []string{"big"}}},
		topics:   make(map[string][]models.Topic),
		quotes:   make(map[string][]models.Quote),
	}
	for i := 1; i <= topicCount; i++ {
		topicID := fmt.Sprintf("big_t%d", i)
		m.topics["big"] = append(m.topics["big"], models.Topic{TopicID: topicID, Title: fmt.Sprintf("Topic %d", i)})
		for k := 1; k <= quotesPerTopic; k++ {
			m.quotes[topicID] = append(m.quotes[topicID], models.Quote{
				QuoteID: fmt.Sprintf("%s_q%d", topicID, k),
				TopicID: topicID,
				Text:    fmt.Sprintf("Quote %d of topic %d", k, i),
				Speaker: "Big Guest",
			})
		}
	}
	return m
}

func (m *memIndex) topicIDs() []string {
	var ids []string
	for _, t := range m.topics["big"] {
		ids = append(ids, t.TopicID)
	}
	return ids
}
