package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/podsearch/internal/citations"
	"github.com/raphaelgruber/podsearch/internal/navigator"
	"github.com/raphaelgruber/podsearch/internal/service"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unsupported format %q (want text, json or yaml)", f)
}

// writeStructured encodes v as indented JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return validateFormat(format)
}

// renderAnswer returns the answer followed by the list of unverified quotes.
func renderAnswer(out *service.Output) string {
	var b strings.Builder
	b.WriteString(out.Content)
	if !strings.HasSuffix(out.Content, "\n") {
		b.WriteString("\n")
	}
	if len(out.Unverified) > 0 {
		fmt.Fprintf(&b, "\n%d quote(s) could not be verified:\n", len(out.Unverified))
		for _, q := range out.Unverified {
			fmt.Fprintf(&b, "  • %q\n", q)
		}
	}
	return b.String()
}

func renderRetrieval(w io.Writer, res *navigator.Result, withTrace bool) {
	fmt.Fprintf(w, "Query: %s\n", res.Query)
	if res.NamedSpeaker != "" {
		fmt.Fprintf(w, "Speaker: %s\n", res.NamedSpeaker)
	}
	if len(res.Themes) > 0 {
		fmt.Fprintf(w, "Themes: %s\n", strings.Join(res.Themes, ", "))
	}
	if res.RetrievalID != "" {
		fmt.Fprintf(w, "Iterations: %d, sufficient: %t, confidence: %.0f%%\n", res.Iterations, res.Sufficient, res.Confidence*100)
	}

	if len(res.Quotes) == 0 {
		fmt.Fprintln(w, "\nNo quotes found.")
	} else {
		fmt.Fprintf(w, "\nQuotes (%d)\n", len(res.Quotes))
		fmt.Fprintf(w, "═══════════════════════════════════════\n")
		for i, q := range res.Quotes {
			fmt.Fprintf(w, "\n%d. %s [%s]", i+1, q.Speaker, q.Timestamp)
			if q.TopicTitle != "" {
				fmt.Fprintf(w, " (%s)", q.TopicTitle)
			}
			fmt.Fprintf(w, "\n   > %s\n", q.Text)
			if q.YouTubeLink != "" {
				fmt.Fprintf(w, "   %s\n", q.YouTubeLink)
			}
		}
	}

	if withTrace && len(res.ReasoningTrace) > 0 {
		fmt.Fprintf(w, "\nReasoning Trace\n")
		fmt.Fprintf(w, "═══════════════════════════════════════\n")
		for _, line := range res.ReasoningTrace {
			fmt.Fprintf(w, "%s\n", line)
		}
	}
}

func renderReport(w io.Writer, report citations.Report) {
	fmt.Fprint(w, report.Text)
	if !strings.HasSuffix(report.Text, "\n") {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "\nVerified: %d, unverified: %d\n", len(report.Citations), len(report.Unverified))
	for _, c := range report.Citations {
		fmt.Fprintf(w, "  ✓ %s (%.0f%%)\n", c.Inline(), c.Score*100)
	}
	for _, q := range report.Unverified {
		fmt.Fprintf(w, "  ✗ %q\n", q)
	}
}
