package indexer

import (
	"strings"
	"testing"
)

func mustChunker(t *testing.T, maxLength, overlap int, opts ...ChunkerOption) *Chunker {
	t.Helper()
	c, err := NewChunker(maxLength, overlap, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewChunker_Validation(t *testing.T) {
	tests := []struct {
		name             string
		maxLength, overl int
		wantErr          bool
	}{
		{"defaults", DefaultMaxLength, DefaultOverlap, false},
		{"zero overlap", 10, 0, false},
		{"zero length", 0, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals length", 10, 10, true},
		{"overlap exceeds length", 10, 20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.maxLength, tt.overl)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewChunker(%d, %d) error = %v, wantErr %v", tt.maxLength, tt.overl, err, tt.wantErr)
			}
		})
	}
}

func TestChunker_ShortTextIsOneChunk(t *testing.T) {
	c := mustChunker(t, 500, 100)
	for _, text := range []string{"", "Boil water. Add tomato. Simmer 10 minutes.", "  padded  \n", strings.Repeat("a", 500)} {
		chunks := c.Split(text)
		if len(chunks) != 1 {
			t.Fatalf("len=%d for %q", len(chunks), text)
		}
		if chunks[0] != strings.TrimSpace(text) {
			t.Errorf("chunk = %q, want trimmed input", chunks[0])
		}
	}
}

func TestChunker_HardCutWithoutPeriods(t *testing.T) {
	c := mustChunker(t, 10, 3)
	text := strings.Repeat("abcdefghij", 3) // 30 runes, no periods
	spans := c.Spans(text)
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans, got %d: %+v", len(spans), spans)
	}
	for i, s := range spans[:len(spans)-1] {
		if s.End-s.Start != 10 {
			t.Errorf("span %d length %d, want 10", i, s.End-s.Start)
		}
		if next := spans[i+1]; s.End-next.Start != 3 {
			t.Errorf("spans %d/%d overlap %d, want 3", i, i+1, s.End-next.Start)
		}
	}
	if last := spans[len(spans)-1]; last.End != 30 {
		t.Errorf("last span should reach the end, got %d", last.End)
	}
}

func TestChunker_PrefersSentenceBoundary(t *testing.T) {
	c := mustChunker(t, 40, 5, WithSearchWindow(10))
	text := "Preheat the oven to 200 degrees now. Chop the onions finely and fry them. Serve hot."
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %v", chunks)
	}
	if !strings.HasSuffix(chunks[0], "now.") {
		t.Errorf("first chunk should end at the sentence break, got %q", chunks[0])
	}
}

func TestChunker_CoversWholeText(t *testing.T) {
	c := mustChunker(t, 50, 10)
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Stir the sauce gently")
		if i%3 == 0 {
			b.WriteString(". ")
		} else {
			b.WriteString(" and ")
		}
	}
	text := b.String()
	spans := c.Spans(text)
	covered := 0
	for i, s := range spans {
		if s.Start > covered {
			t.Fatalf("gap before span %d: covered to %d, starts at %d", i, covered, s.Start)
		}
		if i > 0 && s.Start <= spans[i-1].Start {
			t.Fatalf("span %d does not advance: %d <= %d", i, s.Start, spans[i-1].Start)
		}
		if s.End > covered {
			covered = s.End
		}
	}
	if covered != len([]rune(text)) {
		t.Errorf("covered %d of %d runes", covered, len([]rune(text)))
	}
}

func TestChunker_TerminatesOnPathologicalInput(t *testing.T) {
	inputs := []string{
		strings.Repeat(".", 1000),
		strings.Repeat("a.", 500),
		strings.Repeat(" ", 1000),
		strings.Repeat("x", 1000),
	}
	c := mustChunker(t, 20, 19, WithSearchWindow(50))
	for _, text := range inputs {
		spans := c.Spans(text)
		if len(spans) == 0 || len(spans) > len(text) {
			t.Errorf("unexpected span count %d for input of length %d", len(spans), len(text))
		}
		for i := 1; i < len(spans); i++ {
			if spans[i].Start <= spans[i-1].Start {
				t.Fatalf("no forward progress at span %d", i)
			}
		}
	}
}

func TestChunker_WhitespaceOnlyLongText(t *testing.T) {
	c := mustChunker(t, 10, 2)
	chunks := c.Split(strings.Repeat(" ", 50))
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("expected a single empty chunk, got %q", chunks)
	}
}

func TestChunker_CountsRunes(t *testing.T) {
	c := mustChunker(t, 10, 2)
	text := strings.Repeat("é", 10)
	if chunks := c.Split(text); len(chunks) != 1 {
		t.Errorf("10 runes should fit in one chunk, got %d", len(chunks))
	}
	for _, ch := range c.Split(strings.Repeat("日本", 12)) {
		if n := len([]rune(ch)); n > 10 {
			t.Errorf("chunk has %d runes, max 10", n)
		}
	}
}
