package topics

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxTopics caps the cleaned topic list.
	DefaultMaxTopics = 10
	// MinUsefulTopics is the count below which the gate warns.
	MinUsefulTopics = 3
	minTopicRunes   = 3
)

const trimCutset = " \t\r\n\"'`*\u2022\u2013\u2014-"

// Clean splits raw model answers on commas, strips surrounding punctuation
// and trailing periods, drops fragments of two characters or fewer, and keeps
// at most limit entries. Duplicates are left for the store to fold. A limit
// <= 0 means DefaultMaxTopics.
func Clean(raw []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxTopics
	}
	cleaned := make([]string, 0, len(raw))
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			topic := cleanTopic(part)
			if utf8.RuneCountInString(topic) < minTopicRunes {
				continue
			}
			cleaned = append(cleaned, topic)
			if len(cleaned) == limit {
				return cleaned
			}
		}
	}
	return cleaned
}

func cleanTopic(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	for {
		next := strings.Trim(value, trimCutset)
		next = strings.TrimRight(next, ".")
		if next == value {
			return value
		}
		value = next
	}
}
