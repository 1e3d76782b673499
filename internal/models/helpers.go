package models

import (
	"errors"
	"strings"
)

// ErrInvalidRecord marks an index record that failed load-time validation.
var ErrInvalidRecord = errors.New("invalid index record")

const (
	topicSep = "_t"
	quoteSep = "_q"
)

// EpisodeIDFromTopicID splits a topic id on its LAST "_t" segment.
// Episode slugs may themselves contain "_t" (e.g. "matt_taylor"), so the
// first occurrence is never the boundary.
func EpisodeIDFromTopicID(topicID string) (string, bool) {
	return splitLast(topicID, topicSep)
}

// TopicIDFromQuoteID splits a quote id on its LAST "_q" segment.
func TopicIDFromQuoteID(quoteID string) (string, bool) {
	return splitLast(quoteID, quoteSep)
}

// EpisodeIDFromQuoteID chains both splits.
func EpisodeIDFromQuoteID(quoteID string) (string, bool) {
	topicID, ok := TopicIDFromQuoteID(quoteID)
	if !ok {
		return "", false
	}
	return EpisodeIDFromTopicID(topicID)
}

// splitLast returns the prefix before the last sep, requiring a non-empty
// prefix and an all-digit sequence number after it.
func splitLast(id, sep string) (string, bool) {
	i := strings.LastIndex(id, sep)
	if i <= 0 || i+len(sep) >= len(id) {
		return "", false
	}
	for _, r := range id[i+len(sep):] {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id[:i], true
}
