package memstore

import (
	"context"
	"fmt"
	"sync"

	"legalrag/internal/adapter/store"
	"legalrag/internal/domain"
	"legalrag/internal/port"
)

// MemoryStore keeps chunks and vectors in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	name     string
	embedder port.Embedder
	index    *store.VectorIndex
	chunks   map[string]domain.Chunk
}

func NewMemoryStore(name string, embedder port.Embedder) *MemoryStore {
	return &MemoryStore{
		name:     name,
		embedder: embedder,
		index:    store.NewVectorIndex(),
		chunks:   make(map[string]domain.Chunk),
	}
}

func (s *MemoryStore) Add(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		id := store.StoredID(c)
		s.chunks[id] = c
		s.index.Upsert(id, vectors[i], c.Record().Fields())
	}
	return len(chunks), nil
}

func (s *MemoryStore) Search(ctx context.Context, query string, topK int, filter domain.Filter) ([]domain.RetrievedMatch, error) {
	if s.index.Count() == 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := s.index.Search(vectors[0], topK, filter)
	matches := make([]domain.RetrievedMatch, 0, len(hits))
	for _, h := range hits {
		c, ok := s.chunks[h.ID]
		if !ok {
			continue
		}
		matches = append(matches, domain.RetrievedMatch{
			ID:         h.ID,
			Content:    c.Content,
			Similarity: h.Similarity,
			Metadata:   c.Record(),
		})
	}
	return matches, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	return domain.StoreStats{
		Name:     s.name,
		Count:    s.index.Count(),
		Location: "memory",
		Backend:  "memory",
	}, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = make(map[string]domain.Chunk)
	s.index.Reset()
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
