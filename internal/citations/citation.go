// Package citations checks quoted spans in generated prose against the
// source quotes they were generated from.
//
// Verified quotes are rewritten into the canonical inline form
//
//	"quote" — Speaker, "Episode title" [HH:MM:SS]
//
// and unverified quotes are flagged in place. Verification never fails:
// a quote that cannot be matched only produces a marker.
package citations

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// UnverifiedMarker is appended after a quote that matched no source.
const UnverifiedMarker = " [⚠️ UNVERIFIED]"

// DefaultThreshold is the minimum fuzzy similarity for a match.
const DefaultThreshold = 0.70

const (
	unknown          = "Unknown"
	defaultTimestamp = "00:00:00"
)

// Source is one piece of source material a quote may come from.
type Source struct {
	Content   string `json:"content" yaml:"content"`
	Speaker   string `json:"speaker" yaml:"speaker"`
	Title     string `json:"title" yaml:"title"`
	Guest     string `json:"guest" yaml:"guest"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	EpisodeID string `json:"episode_id,omitempty" yaml:"episode_id,omitempty"`
}

// Citation is a verified quote with its attribution.
type Citation struct {
	Quote     string  `json:"quote" yaml:"quote"`
	Speaker   string  `json:"speaker" yaml:"speaker"`
	Title     string  `json:"title" yaml:"title"`
	Guest     string  `json:"guest" yaml:"guest"`
	Timestamp string  `json:"timestamp" yaml:"timestamp"`
	SourceURL string  `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	Link      string  `json:"link,omitempty" yaml:"link,omitempty"`
	EpisodeID string  `json:"episode_id,omitempty" yaml:"episode_id,omitempty"`
	Score     float64 `json:"similarity_score" yaml:"similarity_score"`
}

// NewCitation attributes quote to src, filling unknown fields with defaults.
func NewCitation(quote string, src Source, score float64) Citation {
	ts := orDefault(src.Timestamp, defaultTimestamp)
	return Citation{
		Quote:     quote,
		Speaker:   orDefault(src.Speaker, unknown),
		Title:     orDefault(src.Title, unknown),
		Guest:     orDefault(src.Guest, unknown),
		Timestamp: ts,
		SourceURL: src.SourceURL,
		Link:      TimestampLink(src.SourceURL, ts),
		EpisodeID: src.EpisodeID,
		Score:     score,
	}
}

// Inline renders the canonical inline citation.
func (c Citation) Inline() string {
	return fmt.Sprintf(`"%s" — %s, "%s" [%s]`, c.Quote, suffixSafe(c.Speaker), suffixSafe(c.Title), c.Timestamp)
}

// suffixQuotes turns double quotes into single ones; a double quote in the
// speaker or title would break the citation suffix on re-parse.
var suffixQuotes = strings.NewReplacer(`"`, "'", "\u201C", "'", "\u201D", "'")

func suffixSafe(s string) string {
	return suffixQuotes.Replace(s)
}

// Markdown renders the citation as a block quote with a timestamp link.
func (c Citation) Markdown() string {
	title := c.Title
	if c.Link != "" {
		title = fmt.Sprintf("[%s](%s)", c.Title, c.Link)
	}
	return fmt.Sprintf("> \"%s\"\n> \n> — %s, %s [%s]", c.Quote, c.Speaker, title, c.Timestamp)
}

// TimestampToSeconds converts HH:MM:SS or MM:SS to seconds. Any other
// input, including non-numeric parts, yields 0.
func TimestampToSeconds(ts string) int {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// TimestampLink returns base with its query string replaced by t=<seconds>s.
// A YouTube watch URL keeps its v parameter. An empty base yields "".
func TimestampLink(base, ts string) string {
	if base == "" {
		return ""
	}
	seek := fmt.Sprintf("t=%ds", TimestampToSeconds(ts))

	u, err := url.Parse(base)
	if err != nil {
		if i := strings.IndexByte(base, '?'); i >= 0 {
			base = base[:i]
		}
		return base + "?" + seek
	}
	v := u.Query().Get("v")
	u.RawQuery = seek
	if v != "" {
		u.RawQuery = "v=" + url.QueryEscape(v) + "&" + seek
	}
	u.Fragment = ""
	return u.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
