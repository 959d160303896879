package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts long text into overlapping passages of at most ChunkSize
// runes. Cuts move back to the last sentence end or space inside the window
// so words stay whole.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = cutPoint(runes, start, end)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		// Start overlapping chunks on a word boundary too.
		for next > start && next < end && !unicode.IsSpace(runes[next-1]) {
			next++
		}
		start = next
	}
	return out
}

// cutPoint prefers a sentence terminator in the second half of the window,
// then any space, then a hard cut.
func cutPoint(runes []rune, start, end int) int {
	half := start + (end-start)/2
	for i := end - 1; i > half; i-- {
		switch runes[i] {
		case '.', '!', '?', '؟', '。':
			return i + 1
		}
	}
	for i := end - 1; i > start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}
