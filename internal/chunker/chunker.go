// Package chunker splits document text into bounded, overlap-controlled
// segments sized for retrieval and model context limits.
package chunker

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/bidwise/rfp-analyzer/internal/apperr"
)

const (
	// DefaultMaxSize is the default chunk size in runes.
	DefaultMaxSize = 1024
	// DefaultOverlap is the default number of runes shared between neighbors.
	DefaultOverlap = 0
)

// Chunk is a contiguous slice of a document's text. Ordinal is the position
// of the chunk within its document, starting at zero.
type Chunk struct {
	Document string
	Ordinal  int
	Text     string
}

// ID returns a stable identifier for the chunk within its document.
func (c Chunk) ID() string {
	return c.Document + ":" + strconv.Itoa(c.Ordinal)
}

// Split cuts text into chunks of at most maxSize runes with overlap runes
// shared between consecutive chunks. Cuts prefer paragraph breaks, then
// sentence ends, then whitespace, falling back to a hard cut. The same input
// and parameters always produce the same chunk sequence.
func Split(docName, text string, maxSize, overlap int) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Inputf("cannot chunk empty text")
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, apperr.Inputf("overlap %d must be non-negative and smaller than the chunk size %d", overlap, maxSize)
	}

	runes := []rune(text)
	var chunks []Chunk

	start := 0
	for {
		if len(runes)-start <= maxSize {
			chunks = append(chunks, Chunk{
				Document: docName,
				Ordinal:  len(chunks),
				Text:     string(runes[start:]),
			})
			return chunks, nil
		}

		cut := boundaryCut(runes[start:start+maxSize], overlap)
		chunks = append(chunks, Chunk{
			Document: docName,
			Ordinal:  len(chunks),
			Text:     string(runes[start : start+cut]),
		})
		start += cut - overlap
	}
}

// boundaryCut returns how many runes of the window belong to the current
// chunk. It keeps the cut strictly past the overlap so that every chunk
// advances through the text.
func boundaryCut(window []rune, overlap int) int {
	min := len(window) / 2
	if min <= overlap {
		min = overlap + 1
	}

	// Paragraph break: cut after the blank line.
	for i := len(window); i > min; i-- {
		if i >= 2 && window[i-1] == '\n' && window[i-2] == '\n' {
			return i
		}
	}

	// Sentence end followed by whitespace: cut after the whitespace rune.
	for i := len(window); i > min; i-- {
		c := window[i-1]
		if (c == '.' || c == '!' || c == '?') && i < len(window) && unicode.IsSpace(window[i]) {
			return i + 1
		}
	}

	// Any whitespace.
	for i := len(window); i > min; i-- {
		if unicode.IsSpace(window[i-1]) {
			return i
		}
	}

	return len(window)
}

// JoinText concatenates chunk texts with single spaces in chunk order. It is
// how retrieved chunks are merged into prompt bodies.
func JoinText(chunks []Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, " ")
}
