package textproc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minSegmentRunes = 5
	clauseSeparator = "،"
)

var (
	sentenceBoundary = regexp.MustCompile(`[.!?؟。．\n]+`)
	terminalBoundary = regexp.MustCompile(`[.!?؟。．]+`)
)

// SplitSentences segments text on terminal punctuation and line breaks.
// Segments must be longer than five runes and contain a letter. When nothing
// qualifies the text is split on the Arabic comma, and as a last resort the
// whole trimmed text is returned as one segment.
func SplitSentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	out := make([]string, 0, 8)
	for _, part := range sentenceBoundary.Split(trimmed, -1) {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > minSegmentRunes && hasLetter(part) {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		return out
	}

	if strings.Contains(trimmed, clauseSeparator) {
		for _, part := range strings.Split(trimmed, clauseSeparator) {
			part = strings.TrimSpace(part)
			if utf8.RuneCountInString(part) > minSegmentRunes {
				out = append(out, part)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	return []string{trimmed}
}

// SplitTerminal splits text on sentence-terminal punctuation only and keeps
// trimmed segments longer than minRunes.
func SplitTerminal(text string, minRunes int) []string {
	parts := terminalBoundary.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if utf8.RuneCountInString(part) > minRunes {
			out = append(out, part)
		}
	}
	return out
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
