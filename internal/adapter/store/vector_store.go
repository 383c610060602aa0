package store

import (
	"math"
	"sort"
	"sync"

	"legalrag/internal/domain"
)

// VectorIndex is an in-memory brute-force cosine index over chunk
// vectors with their scalar metadata. It is safe for concurrent use.
type VectorIndex struct {
	mu      sync.RWMutex
	entries map[string]vectorEntry
}

type vectorEntry struct {
	vector []float32
	fields map[string]string
}

// Hit is one VectorIndex search result.
type Hit struct {
	ID         string
	Similarity float64
	Fields     map[string]string
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{entries: make(map[string]vectorEntry)}
}

// Upsert adds or replaces the vector stored under id.
func (x *VectorIndex) Upsert(id string, vector []float32, fields map[string]string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries[id] = vectorEntry{vector: vector, fields: fields}
}

// Search returns the k entries most similar to query among those whose
// fields satisfy filter, highest similarity first. Ties are ordered by id.
func (x *VectorIndex) Search(query []float32, k int, filter domain.Filter) []Hit {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.entries) == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(x.entries))
	for id, entry := range x.entries {
		if !filter.Matches(entry.fields) {
			continue
		}
		hits = append(hits, Hit{
			ID:         id,
			Similarity: similarity(query, entry.vector),
			Fields:     entry.fields,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// Count returns the number of indexed vectors.
func (x *VectorIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Reset drops every entry.
func (x *VectorIndex) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = make(map[string]vectorEntry)
}

// similarity maps cosine similarity onto [0, 1] as 1 - cosine distance,
// clamping negative correlations to 0.
func similarity(a, b []float32) float64 {
	sim := cosineSimilarity(a, b)
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
