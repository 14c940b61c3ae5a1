// Package index builds, persists and queries per-document semantic indexes.
// An index owns one (chunk, vector) pair per chunk and answers top-k nearest
// neighbor queries by cosine distance.
package index

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/bidwise/rfp-analyzer/internal/ai"
	"github.com/bidwise/rfp-analyzer/internal/apperr"
	"github.com/bidwise/rfp-analyzer/internal/chunker"
)

// DefaultTopK is the number of chunks returned when a query does not specify k.
const DefaultTopK = 20

type entry struct {
	chunk  chunker.Chunk
	vector []float32
}

// Index is one document's collection of chunk/embedding pairs.
type Index struct {
	location string
	embedder ai.Embedder
	entries  []entry
}

// Build embeds every chunk and persists the resulting index at location,
// overwriting whatever was stored there before.
func Build(ctx context.Context, embedder ai.Embedder, chunks []chunker.Chunk, location string) (*Index, error) {
	if len(chunks) == 0 {
		return nil, apperr.Inputf("no chunks to index")
	}

	entries := make([]entry, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, apperr.Dependency(err, fmt.Sprintf("embedding chunk %s", chunk.ID()))
		}
		entries = append(entries, entry{chunk: chunk, vector: vector})
	}

	if err := persist(location, entries); err != nil {
		return nil, apperr.Dependency(err, fmt.Sprintf("persisting index at %q", location))
	}

	return &Index{location: location, embedder: embedder, entries: entries}, nil
}

// Load reconstructs an index previously persisted at location.
func Load(ctx context.Context, embedder ai.Embedder, location string) (*Index, error) {
	if _, err := os.Stat(location); os.IsNotExist(err) {
		return nil, apperr.NotFoundf("no index stored at %q", location)
	}

	entries, err := restore(location)
	if err != nil {
		return nil, apperr.Dependency(err, fmt.Sprintf("loading index at %q", location))
	}

	if len(entries) == 0 {
		return nil, apperr.NotFoundf("index at %q is empty", location)
	}

	return &Index{location: location, embedder: embedder, entries: entries}, nil
}

// Location returns the storage location the index was built at or loaded from.
func (ix *Index) Location() string { return ix.location }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.entries) }

// Query embeds text and returns the k nearest chunks, nearest first. When k
// exceeds the index size every chunk is returned. Equal-distance ties keep
// their document order.
func (ix *Index) Query(ctx context.Context, text string, k int) ([]chunker.Chunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	queryVec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, apperr.Dependency(err, "embedding query")
	}

	type scored struct {
		chunk chunker.Chunk
		score float64
	}

	results := make([]scored, len(ix.entries))
	for i, e := range ix.entries {
		results[i] = scored{chunk: e.chunk, score: cosine(queryVec, e.vector)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > len(results) {
		k = len(results)
	}

	chunks := make([]chunker.Chunk, k)
	for i := 0; i < k; i++ {
		chunks[i] = results[i].chunk
	}
	return chunks, nil
}

// cosine returns the cosine similarity of a and b, 0 when either is zero.
func cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
