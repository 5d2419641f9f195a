// Package vectorindex implements a brute-force cosine-similarity vector
// index over an in-memory map. Sufficient for local development and small
// networks; a production deployment would swap this for an ANN index
// without changing the interface.
package vectorindex

import (
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Index is an in-memory, thread-safe vector store supporting upsert,
// brute-force top-k cosine search, and delete.
type Index struct {
	mu      sync.RWMutex
	vectors map[uuid.UUID][]float32
}

// New creates an empty Index.
func New() *Index {
	return &Index{vectors: make(map[uuid.UUID][]float32)}
}

// Upsert stores or replaces the vector for id.
func (idx *Index) Upsert(id uuid.UUID, vector []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	cp := make([]float32, len(vector))
	copy(cp, vector)
	idx.vectors[id] = cp
}

// Scored is one search result: an id and its similarity to the query.
type Scored struct {
	ID         uuid.UUID
	Similarity float32
}

// Search returns up to topK entries sorted by descending cosine similarity
// against query.
func (idx *Index) Search(query []float32, topK int) []Scored {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scored := make([]Scored, 0, len(idx.vectors))
	for id, v := range idx.vectors {
		scored = append(scored, Scored{ID: id, Similarity: CosineSimilarity(query, v)})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored
}

// Delete removes id's vector, if present.
func (idx *Index) Delete(id uuid.UUID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, id)
}

// Len returns the number of vectors currently stored.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// CosineSimilarity returns a value in [-1,1], or 0 if the vectors differ in
// length or either has zero magnitude.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}
