// Package indexer turns recipes into embedded vector records and feeds them to a store.
package indexer

import (
	"fmt"
	"strings"
)

// Chunker defaults.
const (
	DefaultMaxLength    = 500
	DefaultOverlap      = 100
	DefaultSearchWindow = 50
)

// Span is one chunk of a text. Start and End are rune offsets into the
// original text; Text is the trimmed content of [Start, End).
type Span struct {
	Text  string
	Start int
	End   int
}

// Chunker splits long text into overlapping segments of bounded length, preferring
// to cut just after a period found near the length boundary.
type Chunker struct {
	maxLength    int
	overlap      int
	searchWindow int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithSearchWindow sets how many runes either side of the length boundary are
// searched for a period.
func WithSearchWindow(n int) ChunkerOption {
	return func(c *Chunker) {
		if n >= 0 {
			c.searchWindow = n
		}
	}
}

// NewChunker creates a chunker with the given maximum length and overlap, in runes.
func NewChunker(maxLength, overlap int, opts ...ChunkerOption) (*Chunker, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("chunk max length must be positive, got %d", maxLength)
	}
	if overlap < 0 || overlap >= maxLength {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", maxLength, overlap)
	}
	c := &Chunker{maxLength: maxLength, overlap: overlap, searchWindow: DefaultSearchWindow}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Split returns the chunk texts of text. It always returns at least one chunk.
func (c *Chunker) Split(text string) []string {
	spans := c.Spans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}

// Spans splits text into overlapping chunks.
//
// A window runs from start to start+maxLength. When the text continues past the
// window, the first period within searchWindow runes of the boundary moves the cut
// to just after it. The next window starts overlap runes before the cut, and always
// strictly after the previous start. Whitespace-only chunks are dropped unless they
// are the only chunk.
func (c *Chunker) Spans(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	if n <= c.maxLength {
		return []Span{{Text: strings.TrimSpace(text), Start: 0, End: n}}
	}
	var spans []Span
	start := 0
	for start < n {
		end := start + c.maxLength
		if end < n {
			if cut := c.sentenceCut(runes, start, end); cut > 0 {
				end = cut
			}
		} else {
			end = n
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			spans = append(spans, Span{Text: chunk, Start: start, End: end})
		}
		if end >= n {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	if len(spans) == 0 {
		return []Span{{Text: "", Start: 0, End: n}}
	}
	return spans
}

// sentenceCut returns the offset just past the first period in the window around
// end, or 0 if there is none. The window never reaches back to start, so every
// chunk keeps at least one rune.
func (c *Chunker) sentenceCut(runes []rune, start, end int) int {
	lo := end - c.searchWindow
	if lo <= start {
		lo = start + 1
	}
	hi := end + c.searchWindow
	if hi > len(runes) {
		hi = len(runes)
	}
	for i := lo; i < hi; i++ {
		if runes[i] == '.' {
			return i + 1
		}
	}
	return 0
}
