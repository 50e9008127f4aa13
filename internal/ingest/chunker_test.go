package ingest

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmptyInput(t *testing.T) {
	c := NewChunker(1000, 200, 100)
	if got := c.Split(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := c.Split("   \n\t  "); got != nil {
		t.Fatalf("expected nil for whitespace input, got %v", got)
	}
}

func TestSplitShortInput(t *testing.T) {
	c := NewChunker(1000, 200, 100)
	got := c.Split("  a single short paragraph  ")
	if len(got) != 1 {
		t.Fatalf("expected one chunk, got %d", len(got))
	}
	if got[0] != "a single short paragraph" {
		t.Fatalf("unexpected chunk content: %q", got[0])
	}
}

func TestSplitRespectsSizeCap(t *testing.T) {
	c := NewChunker(200, 40, 30)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 80)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	maxRunes := c.Size * 3 / 2
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch); n > maxRunes {
			t.Fatalf("chunk %d has %d runes, cap is %d", i, n, maxRunes)
		}
		if strings.TrimSpace(ch) == "" {
			t.Fatalf("chunk %d is blank", i)
		}
	}
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	c := NewChunker(250, 50, 30)
	sentence := strings.Repeat("alpha beta gamma delta ", 4) + "ends here. "
	text := strings.Repeat(sentence, 20)

	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if !strings.HasSuffix(ch, ".") {
			t.Fatalf("chunk %d does not end at a sentence boundary: %q", i, ch[len(ch)-20:])
		}
	}
}

func TestSplitChunksAreSubstrings(t *testing.T) {
	c := NewChunker(200, 40, 30)
	text := strings.Repeat("stacks and queues are linear structures. ", 50)
	normalized := strings.TrimSpace(text)

	for i, ch := range c.Split(text) {
		if !strings.Contains(normalized, ch) {
			t.Fatalf("chunk %d is not a substring of the input", i)
		}
	}
}

func TestSplitMergesShortTail(t *testing.T) {
	c := NewChunker(100, 10, 50)
	text := strings.Repeat("x", 100) + " " + strings.Repeat("y", 20)

	chunks := c.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected short tail to merge into one chunk, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], strings.Repeat("y", 20)) {
		t.Fatalf("merged chunk lost the tail: %q", chunks[0])
	}
}
