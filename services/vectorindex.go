package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/Etheryii/Ai-Assistant-New/models"
)

// VectorIndex stores chunk vectors and supports nearest-neighbour search.
// Implementations are populated once during a rebuild and treated as
// read-only afterwards, so the search path needs no locking.
type VectorIndex interface {
	// Insert adds one chunk with its embedding. Vectors whose dimensionality
	// does not match the index are rejected.
	Insert(ctx context.Context, chunk models.Chunk, vector []float32) error

	// Search returns up to k chunks ordered by descending similarity.
	// k larger than the index returns everything; an empty index returns an
	// empty result, never an error.
	Search(ctx context.Context, vector []float32, k int) ([]models.RetrievedChunk, error)

	// Len reports the number of indexed chunks.
	Len() int

	// Documents maps each source label to its chunk count.
	Documents() map[string]int
}

// MemoryIndex is a brute-force cosine-similarity index. At knowledge-base
// scale a full scan per query is cheap; anything smarter can be swapped in
// behind the VectorIndex interface without touching callers.
type MemoryIndex struct {
	dimension int
	vectors   [][]float32
	chunks    []models.Chunk
}

// NewMemoryIndex creates an empty in-memory index. The dimension is fixed
// by the first inserted vector.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Insert(_ context.Context, chunk models.Chunk, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty embedding vector for chunk %s", chunk.ID)
	}
	if m.dimension == 0 {
		m.dimension = len(vector)
	} else if len(vector) != m.dimension {
		return fmt.Errorf("vector dimension mismatch for chunk %s: got %d, want %d", chunk.ID, len(vector), m.dimension)
	}
	m.chunks = append(m.chunks, chunk)
	m.vectors = append(m.vectors, vector)
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, vector []float32, k int) ([]models.RetrievedChunk, error) {
	if len(m.vectors) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 5
	}

	scored := make([]models.RetrievedChunk, len(m.vectors))
	for i := range m.vectors {
		scored[i] = models.RetrievedChunk{
			Chunk: m.chunks[i],
			Score: cosineSimilarity(m.vectors[i], vector),
		}
	}
	// Stable sort keeps insertion order on ties.
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (m *MemoryIndex) Len() int { return len(m.chunks) }

func (m *MemoryIndex) Documents() map[string]int {
	counts := make(map[string]int)
	for _, ch := range m.chunks {
		counts[ch.Source]++
	}
	return counts
}

// cosineSimilarity returns the cosine of the angle between a and b,
// in [-1, 1]. Zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
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

type indexBox struct {
	index VectorIndex
}

// IndexHolder publishes immutable index snapshots. A rebuild constructs a
// complete new index and swaps it in with a single atomic store, so readers
// never observe a partially built index and the query path takes no lock.
type IndexHolder struct {
	current atomic.Pointer[indexBox]
}

// NewIndexHolder starts with an empty in-memory snapshot, so retrieval
// before the first rebuild degrades to "no knowledge" instead of failing.
func NewIndexHolder() *IndexHolder {
	h := &IndexHolder{}
	h.Store(NewMemoryIndex())
	return h
}

// Store publishes a fully built index as the current snapshot.
func (h *IndexHolder) Store(idx VectorIndex) {
	h.current.Store(&indexBox{index: idx})
}

// Snapshot returns the currently published index.
func (h *IndexHolder) Snapshot() VectorIndex {
	box := h.current.Load()
	if box == nil {
		return nil
	}
	return box.index
}
