package ingest

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits extracted text into overlapping windows sized in runes,
// preferring paragraph and sentence boundaries over hard cuts.
type Chunker struct {
	Size    int // target window size in runes
	Overlap int // runes carried into the next window
	MinSize int // trailing fragments below this merge into the previous chunk
}

func NewChunker(size, overlap, minSize int) *Chunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	if minSize < 0 {
		minSize = 0
	}
	return &Chunker{Size: size, Overlap: overlap, MinSize: minSize}
}

// Split returns the chunk texts in source order. Empty or whitespace-only
// input yields nil.
func (c *Chunker) Split(text string) []string {
	text = normalizeText(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.Size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.Size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = appendChunk(chunks, chunk, c.Size, c.MinSize)
		}

		if end >= len(runes) {
			break
		}
		next := end - c.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// appendChunk merges a short trailing piece into the previous chunk as long
// as the result stays under one and a half windows.
func appendChunk(chunks []string, chunk string, size, minSize int) []string {
	if len(chunks) == 0 || utf8.RuneCountInString(chunk) >= minSize {
		return append(chunks, chunk)
	}
	merged := chunks[len(chunks)-1] + "\n" + chunk
	if utf8.RuneCountInString(merged) <= size*3/2 {
		chunks[len(chunks)-1] = merged
		return chunks
	}
	return append(chunks, chunk)
}

// breakPoint walks backward from the hard cut looking first for a paragraph
// break, then a sentence end. It never retreats past half a window.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	floor := start + c.Size/2

	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i + 1
		}
	}
	for i := end - 1; i > floor; i-- {
		if isSentenceEnd(runes[i-1]) && isSpaceRune(runes[i]) {
			return i + 1
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isSpaceRune(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
