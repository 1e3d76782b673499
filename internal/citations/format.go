package citations

import (
	"fmt"
	"slices"
	"strings"
)

// FormatCitationsSection renders a markdown "Sources" section with one line
// per episode title, in first-cited order, listing its sorted distinct
// timestamps. It returns "" when there are no citations.
func FormatCitationsSection(citations []Citation) string {
	if len(citations) == 0 {
		return ""
	}

	type group struct {
		guest      string
		url        string
		timestamps []string
	}
	var titles []string
	groups := make(map[string]*group)
	for _, c := range citations {
		g, ok := groups[c.Title]
		if !ok {
			g = &group{guest: c.Guest, url: c.SourceURL}
			groups[c.Title] = g
			titles = append(titles, c.Title)
		}
		if !slices.Contains(g.timestamps, c.Timestamp) {
			g.timestamps = append(g.timestamps, c.Timestamp)
		}
	}

	lines := []string{"", "---", "", "## Sources", ""}
	for _, title := range titles {
		g := groups[title]
		slices.SortFunc(g.timestamps, compareTimestamps)

		ref := title
		if g.url != "" {
			ref = fmt.Sprintf("[%s](%s)", title, g.url)
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s (Referenced at: %s)",
			g.guest, ref, strings.Join(g.timestamps, ", ")))
	}
	return strings.Join(lines, "\n")
}

func compareTimestamps(a, b string) int {
	if d := TimestampToSeconds(a) - TimestampToSeconds(b); d != 0 {
		return d
	}
	return strings.Compare(a, b)
}
