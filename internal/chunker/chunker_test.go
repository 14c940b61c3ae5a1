package chunker

import (
	"strings"
	"testing"

	"github.com/bidwise/rfp-analyzer/internal/apperr"
)

// reassemble undoes the declared overlap and joins the chunk texts back
// together.
func reassemble(chunks []Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		text := []rune(c.Text)
		if i > 0 {
			text = text[overlap:]
		}
		b.WriteString(string(text))
	}
	return b.String()
}

func TestSplitBoundsAndReconstruction(t *testing.T) {
	t.Parallel()

	paragraph := "The bidder must have five years of experience. The bidder must be registered in the state. All staff must hold current certifications.\n\n"
	text := strings.Repeat(paragraph, 20)

	tests := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{name: "defaults", maxSize: DefaultMaxSize, overlap: DefaultOverlap},
		{name: "small chunks", maxSize: 100, overlap: 0},
		{name: "with overlap", maxSize: 200, overlap: 40},
		{name: "tiny window", maxSize: 16, overlap: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chunks, err := Split("rfp.txt", text, tt.maxSize, tt.overlap)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(chunks) == 0 {
				t.Fatal("expected at least one chunk")
			}

			for i, c := range chunks {
				if got := len([]rune(c.Text)); got > tt.maxSize {
					t.Fatalf("chunk %d has %d runes, max is %d", i, got, tt.maxSize)
				}
				if c.Ordinal != i {
					t.Fatalf("chunk %d carries ordinal %d", i, c.Ordinal)
				}
				if c.Document != "rfp.txt" {
					t.Fatalf("chunk %d lost its document reference: %q", i, c.Document)
				}
			}

			if got := reassemble(chunks, tt.overlap); got != text {
				t.Fatalf("reassembled text differs from input (%d vs %d runes)", len([]rune(got)), len([]rune(text)))
			}
		})
	}
}

func TestSplitDeterministic(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("Bidders shall submit audited financial statements. ", 60)

	first, err := Split("doc", text, 256, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := Split("doc", text, 256, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitPrefersSentenceBoundaries(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("A complete sentence ends here. ", 40)

	chunks, err := Split("doc", text, 120, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every non-final chunk should end right after a sentence.
	for i, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c.Text, ". ") {
			t.Fatalf("chunk %d does not end on a sentence boundary: %q", i, c.Text)
		}
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	chunks, err := Split("doc", "short text", 1024, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(chunks) != 1 || chunks[0].Text != "short text" {
		t.Fatalf("expected one chunk with the full text, got %+v", chunks)
	}
}

func TestSplitEmptyText(t *testing.T) {
	t.Parallel()

	_, err := Split("doc", "   \n ", 1024, 0)
	if !apperr.IsKind(err, apperr.KindInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestSplitRejectsBadOverlap(t *testing.T) {
	t.Parallel()

	if _, err := Split("doc", "some text", 10, 10); !apperr.IsKind(err, apperr.KindInput) {
		t.Fatalf("expected input error for overlap == maxSize, got %v", err)
	}

	if _, err := Split("doc", "some text", 10, -1); !apperr.IsKind(err, apperr.KindInput) {
		t.Fatalf("expected input error for negative overlap, got %v", err)
	}
}

func TestChunkID(t *testing.T) {
	t.Parallel()

	c := Chunk{Document: "rfp.pdf", Ordinal: 3}
	if c.ID() != "rfp.pdf:3" {
		t.Fatalf("unexpected id: %q", c.ID())
	}
}

func TestJoinText(t *testing.T) {
	t.Parallel()

	joined := JoinText([]Chunk{{Text: "alpha"}, {Text: "beta"}})
	if joined != "alpha beta" {
		t.Fatalf("unexpected join: %q", joined)
	}
}
