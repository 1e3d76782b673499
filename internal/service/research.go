package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/podsearch/internal/citations"
	"github.com/raphaelgruber/podsearch/internal/index"
	"github.com/raphaelgruber/podsearch/internal/models"
	"github.com/raphaelgruber/podsearch/internal/navigator"
)

// Mode selects how much retrieval effort a research run spends.
type Mode string

const (
	ModeDeep  Mode = "deep"
	ModeQuick Mode = "quick"
)

// QuickTopK is the number of quotes a quick run retrieves.
const QuickTopK = 10

// NoMaterialAnswer is returned when retrieval finds nothing to cite.
const NoMaterialAnswer = "No relevant material was found in the podcast archive for this query. Try rephrasing it or naming a guest or theme."

// ParseMode parses a mode name. The empty string means ModeDeep.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeDeep:
		return ModeDeep, nil
	case ModeQuick:
		return ModeQuick, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want deep or quick)", s)
	}
}

// Retriever assembles quotes for a query. *navigator.Navigator implements it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*navigator.Result, error)
	RetrieveQuick(ctx context.Context, query string, topK int) ([]navigator.RetrievedQuote, error)
}

// Synthesizer writes an answer from formatted quote context. *llm.Model implements it.
type Synthesizer interface {
	SynthesizeAnswer(ctx context.Context, query string, context string) (string, error)
}

// Index is the index access research needs. *index.Store implements it.
type Index interface {
	EpisodeIndex(ctx context.Context) (map[string]models.Episode, error)
	Quotes(ctx context.Context, episodeID string) ([]models.Quote, error)
}

// Output is the result of a research run.
type Output struct {
	Query      string                     `json:"query"`
	Mode       Mode                       `json:"mode"`
	Content    string                     `json:"content"`
	Citations  []citations.Citation       `json:"citations"`
	Sources    []models.Episode           `json:"sources"`
	Unverified []string                   `json:"unverified"`
	Retrieval  *navigator.Result          `json:"retrieval,omitempty"`
	Quotes     []navigator.RetrievedQuote `json:"-"`
}

// ResearchService answers questions from the podcast archive: retrieve
// quotes, synthesize an answer from them, then verify every quote in the
// answer against what was retrieved.
type ResearchService struct {
	retriever Retriever
	synth     Synthesizer
	verifier  *citations.Verifier
	index     Index
}

// NewResearchService creates a research service.
func NewResearchService(retriever Retriever, synth Synthesizer, verifier *citations.Verifier, idx Index) *ResearchService {
	return &ResearchService{
		retriever: retriever,
		synth:     synth,
		verifier:  verifier,
		index:     idx,
	}
}

// Run answers query in the given mode.
func (s *ResearchService) Run(ctx context.Context, query string, mode Mode) (*Output, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}
	if s.synth == nil {
		return nil, errors.New("synthesis model not configured")
	}
	start := time.Now()

	out := &Output{
		Query:      query,
		Mode:       mode,
		Citations:  []citations.Citation{},
		Sources:    []models.Episode{},
		Unverified: []string{},
	}

	switch mode {
	case ModeQuick:
		quotes, err := s.retriever.RetrieveQuick(ctx, query, QuickTopK)
		if err != nil {
			return nil, fmt.Errorf("retrieve: %w", err)
		}
		out.Quotes = quotes
	default:
		out.Mode = ModeDeep
		result, err := s.retriever.Retrieve(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("retrieve: %w", err)
		}
		out.Retrieval = result
		out.Quotes = result.Quotes
	}

	if len(out.Quotes) == 0 {
		out.Content = NoMaterialAnswer
		slog.Info("research found no material", "query", query, "mode", out.Mode)
		return out, nil
	}

	episodes, err := s.index.EpisodeIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("load episodes: %w", err)
	}
	sources := quoteSources(out.Quotes, episodes)
	out.Sources = uniqueEpisodes(out.Quotes, episodes)

	answer, err := s.synth.SynthesizeAnswer(ctx, query, buildQuoteContext(sources))
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	report := s.verifier.VerifyAndFix(answer, sources)
	out.Content = report.Text
	out.Citations = report.Citations
	out.Unverified = report.Unverified
	if out.Mode == ModeDeep {
		out.Content += citations.FormatCitationsSection(report.Citations)
	}

	slog.Info("research complete",
		"query", query,
		"mode", out.Mode,
		"quotes", len(out.Quotes),
		"citations", len(out.Citations),
		"unverified", len(out.Unverified),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Verify checks text against the quotes of the given episodes.
func (s *ResearchService) Verify(ctx context.Context, text string, episodeIDs []string) (citations.Report, error) {
	sources, err := s.EpisodeSources(ctx, episodeIDs)
	if err != nil {
		return citations.Report{}, err
	}
	return s.verifier.VerifyAndFix(text, sources), nil
}

// EpisodeSources returns every quote of the given episodes as a citation source.
func (s *ResearchService) EpisodeSources(ctx context.Context, episodeIDs []string) ([]citations.Source, error) {
	episodes, err := s.index.EpisodeIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("load episodes: %w", err)
	}

	var sources []citations.Source
	for _, id := range episodeIDs {
		if _, ok := episodes[id]; !ok {
			return nil, fmt.Errorf("episode %q: %w", id, index.ErrNotFound)
		}
		quotes, err := s.index.Quotes(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, q := range quotes {
			sources = append(sources, quoteSource(q, episodes))
		}
	}
	return sources, nil
}

func quoteSources(quotes []navigator.RetrievedQuote, episodes map[string]models.Episode) []citations.Source {
	sources := make([]citations.Source, 0, len(quotes))
	for _, q := range quotes {
		sources = append(sources, quoteSource(q.Quote, episodes))
	}
	return sources
}

func quoteSource(q models.Quote, episodes map[string]models.Episode) citations.Source {
	episodeID, _ := models.EpisodeIDFromQuoteID(q.QuoteID)
	ep := episodes[episodeID]
	url := q.YouTubeLink
	if url == "" {
		url = ep.YouTubeURL
	}
	return citations.Source{
		Content:   q.Text,
		Speaker:   q.Speaker,
		Title:     ep.Title,
		Guest:     ep.Guest,
		Timestamp: q.Timestamp,
		SourceURL: url,
		EpisodeID: episodeID,
	}
}

func uniqueEpisodes(quotes []navigator.RetrievedQuote, episodes map[string]models.Episode) []models.Episode {
	seen := make(map[string]struct{})
	var out []models.Episode
	for _, q := range quotes {
		id, ok := models.EpisodeIDFromQuoteID(q.QuoteID)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if ep, ok := episodes[id]; ok {
			out = append(out, ep)
		}
	}
	return out
}

// buildQuoteContext formats sources into the context block handed to the
// synthesizer.
func buildQuoteContext(sources []citations.Source) string {
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		parts = append(parts, fmt.Sprintf("---\nSource: %s\nGuest: %s\nSpeaker: %s\nTimestamp: %s\n\n%s\n---",
			orUnknown(src.Title), orUnknown(src.Guest), orUnknown(src.Speaker), src.Timestamp, src.Content))
	}
	return strings.Join(parts, "\n\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
