package citations

import (
	"log/slog"
	"time"

	"github.com/raphaelgruber/podsearch/internal/metrics"
)

// Report is the outcome of verifying a text.
type Report struct {
	Text       string     `json:"text" yaml:"text"`
	Citations  []Citation `json:"citations" yaml:"citations"`
	Unverified []string   `json:"unverified" yaml:"unverified"`
}

// Verifier matches quotes against sources and rewrites their attribution.
// It holds no mutable state.
type Verifier struct {
	threshold float64
	metrics   *metrics.Collector
}

// NewVerifier creates a verifier. A non-positive threshold uses DefaultThreshold.
func NewVerifier(threshold float64, collector *metrics.Collector) *Verifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Verifier{threshold: threshold, metrics: collector}
}

// Threshold returns the minimum fuzzy similarity for a match.
func (v *Verifier) Threshold() float64 { return v.threshold }

// Find returns the best source for quote at the verifier's threshold.
func (v *Verifier) Find(quote string, sources []Source) (Match, bool) {
	return FindQuoteInSources(quote, sources, v.threshold)
}

// VerifyAndFix checks every quote of text against sources, including quotes
// that already carry a citation suffix. The first occurrence of a matched
// quote is rewritten into the canonical citation form, replacing any
// trailing attribution. The first occurrence of an unmatched quote is
// flagged with UnverifiedMarker, whatever attribution follows it.
// Applying VerifyAndFix to its own output changes nothing.
func (v *Verifier) VerifyAndFix(text string, sources []Source) Report {
	defer v.metrics.Since(metrics.OpVerification, time.Now())

	quotes := collectQuotes(text, true)
	report := Report{
		Text:       text,
		Citations:  []Citation{},
		Unverified: []string{},
	}

	for _, q := range quotes {
		match, ok := v.Find(q, sources)
		if !ok {
			slog.Debug("quote not found in sources", "quote", truncate(q, 80))
			report.Unverified = append(report.Unverified, q)
			report.Text = flagUnverified(report.Text, q)
			continue
		}
		c := NewCitation(q, match.Source, match.Score)
		report.Citations = append(report.Citations, c)
		report.Text = attachCitation(report.Text, c)
	}

	v.metrics.Add(metrics.CounterVerifiedQuotes, int64(len(report.Citations)))
	v.metrics.Add(metrics.CounterUnverifiedQuotes, int64(len(report.Unverified)))
	slog.Info("citations verified",
		"quotes", len(quotes),
		"verified", len(report.Citations),
		"unverified", len(report.Unverified),
	)
	return report
}

func attachCitation(text string, c Citation) string {
	s, ok := firstOccurrence(text, c.Quote)
	if !ok {
		return text
	}
	end := s.end + attributionEnd(text[s.end:])
	return text[:s.start] + c.Inline() + text[end:]
}

func flagUnverified(text, quote string) string {
	s, ok := firstOccurrence(text, quote)
	if !ok || s.flagged(text) {
		return text
	}
	return text[:s.end] + UnverifiedMarker + text[s.end:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
