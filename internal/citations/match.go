package citations

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Match is the best source for a quote and its similarity in [0,1].
type Match struct {
	Source Source
	Score  float64
}

// normalize lowercases s and collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// similarity is 1 - edit distance / length of the longer string.
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// partialSimilarity scores needle against its best-aligned window of
// haystack. Windows have the needle's length and start at word boundaries.
func partialSimilarity(needle, haystack string) float64 {
	n, h := []rune(needle), []rune(haystack)
	if len(n) == 0 || len(h) == 0 {
		return 0
	}
	if len(n) >= len(h) {
		return similarity(needle, haystack)
	}

	best := 0.0
	for i := range h {
		if i > 0 && !unicode.IsSpace(h[i-1]) {
			continue
		}
		end := min(i+len(n), len(h))
		start := max(0, end-len(n))
		if score := similarity(needle, string(h[start:end])); score > best {
			best = score
			if best == 1 {
				break
			}
		}
	}
	return best
}

// FindQuoteInSources returns the source quote most likely came from.
// A case-insensitive substring hit scores 1 and wins immediately.
// Otherwise the best fuzzy score across sources must reach threshold.
func FindQuoteInSources(quote string, sources []Source, threshold float64) (Match, bool) {
	q := normalize(quote)
	if q == "" {
		return Match{}, false
	}

	contents := make([]string, len(sources))
	for i, src := range sources {
		contents[i] = normalize(src.Content)
		if strings.Contains(contents[i], q) {
			return Match{Source: src, Score: 1}, true
		}
	}

	var best Match
	found := false
	for i, src := range sources {
		if score := partialSimilarity(q, contents[i]); !found || score > best.Score {
			best, found = Match{Source: src, Score: score}, true
		}
	}
	if !found || best.Score < threshold {
		return Match{}, false
	}
	return best, true
}
