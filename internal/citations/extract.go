package citations

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const minQuoteRunes = 15

var (
	straightQuote = regexp.MustCompile(`"([^"]+)"`)
	smartQuote    = regexp.MustCompile(`\x{201C}([^\x{201D}]+)\x{201D}`)

	// citedSuffix matches a full attribution directly after a quote:
	// — Name, "Title" [HH:MM:SS] (or [MM:SS]).
	citedSuffix = regexp.MustCompile(`^\s*—\s*[^"“\n]*?,\s*"[^"\n]*"\s*\[\d{1,2}:\d{2}(?::\d{2})?\]`)
	// looseSuffix matches any trailing "— ..." attribution up to the next quote or line end.
	looseSuffix = regexp.MustCompile(`^\s*—[^"“\n]*`)
	// looseTitle and looseTimestamp extend a loose attribution that ends in a comma.
	looseTitle     = regexp.MustCompile(`^"[^"\n]*"`)
	looseTimestamp = regexp.MustCompile(`^\s*\[[^\]\n]*\]`)

	titleSlotBefore = regexp.MustCompile(`—[^"“\n]*,\s*$`)
	titleSlotAfter  = regexp.MustCompile(`^\s*\[\d{1,2}:\d{2}(?::\d{2})?\]`)
)

// span is one quoted region of a text. [start, end) covers the delimiters.
type span struct {
	start, end int
	inner      string
	smart      bool
}

// quotedSpans returns straight-quoted spans followed by smart-quoted spans,
// each in text order.
func quotedSpans(text string) []span {
	var spans []span
	for _, re := range []*regexp.Regexp{straightQuote, smartQuote} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			spans = append(spans, span{
				start: m[0],
				end:   m[1],
				inner: text[m[2]:m[3]],
				smart: re == smartQuote,
			})
		}
	}
	return spans
}

// cited reports whether the span already carries a full citation suffix.
func (s span) cited(text string) bool {
	return citedSuffix.MatchString(text[s.end:])
}

// titleSlot reports whether the span is the title of a citation suffix.
func (s span) titleSlot(text string) bool {
	if s.smart {
		return false
	}
	return titleSlotBefore.MatchString(text[:s.start]) && titleSlotAfter.MatchString(text[s.end:])
}

// flagged reports whether the span is followed by the unverified marker.
func (s span) flagged(text string) bool {
	return strings.HasPrefix(text[s.end:], UnverifiedMarker)
}

// ExtractQuotes returns the distinct quoted spans of text worth verifying,
// straight-quoted spans first, then smart-quoted ones. Spans shorter than
// 15 runes, spans containing "|", spans that already carry a citation
// suffix and citation titles are skipped.
func ExtractQuotes(text string) []string {
	return collectQuotes(text, false)
}

// collectQuotes applies the extraction rules. With withCited set, quotes
// that already carry a citation suffix are kept so their attribution can be
// checked; citation titles are always skipped.
func collectQuotes(text string, withCited bool) []string {
	var quotes []string
	for _, s := range quotedSpans(text) {
		q := s.inner
		switch {
		case utf8.RuneCountInString(q) < minQuoteRunes:
		case strings.Contains(q, "|"):
		case s.titleSlot(text):
		case !withCited && s.cited(text):
		case slices.Contains(quotes, q):
		default:
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// firstOccurrence returns the earliest span of text quoting q that is not a
// citation title.
func firstOccurrence(text, q string) (span, bool) {
	var best span
	found := false
	for _, s := range quotedSpans(text) {
		if s.inner != q || s.titleSlot(text) {
			continue
		}
		if !found || s.start < best.start {
			best, found = s, true
		}
	}
	return best, found
}

// attributionEnd returns the length of the attribution trailing a quote at
// the start of rest: a full citation suffix, or a loose "— ..." attribution
// including a quoted title and bracketed timestamp after its last comma.
func attributionEnd(rest string) int {
	if loc := citedSuffix.FindStringIndex(rest); loc != nil {
		return loc[1]
	}
	loc := looseSuffix.FindStringIndex(rest)
	if loc == nil {
		return 0
	}
	end := loc[1]
	if !strings.HasSuffix(strings.TrimRight(rest[:end], " \t"), ",") {
		return end
	}
	if t := looseTitle.FindStringIndex(rest[end:]); t != nil {
		end += t[1]
		if ts := looseTimestamp.FindStringIndex(rest[end:]); ts != nil {
			end += ts[1]
		}
	}
	return end
}
