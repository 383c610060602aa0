package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"

	"legalrag/internal/domain"
	"legalrag/internal/port"
)

var (
	bucketChunks  = []byte("chunks")
	bucketVectors = []byte("vectors")
	bucketStats   = []byte("stats")
)

// StoredID derives the storage key of a chunk from its id and content so
// that a changed chunk never overwrites its predecessor's vector.
func StoredID(c domain.Chunk) string {
	sum := md5.Sum([]byte(c.Content))
	return c.ID + "_" + hex.EncodeToString(sum[:])[:12]
}

// BoltStore persists chunks, their vectors and schema info in a BoltDB
// file. Vectors are mirrored in memory for search.
type BoltStore struct {
	db         *bbolt.DB
	path       string
	collection string
	embedder   port.Embedder
	index      *VectorIndex
	mu         sync.Mutex
}

type storedChunk struct {
	Content string            `json:"content"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type storedVector struct {
	Vector []float32         `json:"v"`
	Fields map[string]string `json:"m,omitempty"`
}

// NewBoltStore opens (creating if needed) the database at path.
func NewBoltStore(path, collection string, embedder port.Embedder) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketVectors, bucketStats} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{
		db:         db,
		path:       path,
		collection: collection,
		embedder:   embedder,
		index:      NewVectorIndex(),
	}
	if err := s.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

// loadVectors loads all vectors from BoltDB into memory.
func (s *BoltStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // Skip corrupted entries
			}
			s.index.Upsert(string(k), stored.Vector, stored.Fields)
			return nil
		})
	})
}

// Add embeds and stores the chunks in one transaction.
func (s *BoltStore) Add(ctx context.Context, chunks []domain.Chunk) (int, error) {
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
	dim := s.embedder.Dimension()
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("vector dimension mismatch for %s: expected %d, got %d", chunks[i].ID, dim, len(v))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(chunks))
	fields := make([]map[string]string, len(chunks))
	err = s.db.Update(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		vb := tx.Bucket(bucketVectors)

		for i, c := range chunks {
			ids[i] = StoredID(c)
			fields[i] = c.Record().Fields()

			data, err := json.Marshal(storedChunk{Content: c.Content, Fields: fields[i]})
			if err != nil {
				return err
			}
			if err := cb.Put([]byte(ids[i]), data); err != nil {
				return err
			}

			data, err = json.Marshal(storedVector{Vector: vectors[i], Fields: fields[i]})
			if err != nil {
				return err
			}
			if err := vb.Put([]byte(ids[i]), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	for i := range chunks {
		s.index.Upsert(ids[i], vectors[i], fields[i])
	}
	return len(chunks), nil
}

// Search embeds query and returns the topK most similar chunks.
func (s *BoltStore) Search(ctx context.Context, query string, topK int, filter domain.Filter) ([]domain.RetrievedMatch, error) {
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

	hits := s.index.Search(vectors[0], topK, filter)
	if len(hits) == 0 {
		return nil, nil
	}

	matches := make([]domain.RetrievedMatch, 0, len(hits))
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		for _, h := range hits {
			data := b.Get([]byte(h.ID))
			if data == nil {
				continue
			}
			var stored storedChunk
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("corrupt chunk %s: %w", h.ID, err)
			}
			matches = append(matches, domain.RetrievedMatch{
				ID:         h.ID,
				Content:    stored.Content,
				Similarity: h.Similarity,
				Metadata:   domain.MetadataFromFields(stored.Fields),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

func (s *BoltStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	return domain.StoreStats{
		Name:     s.collection,
		Count:    s.index.Count(),
		Location: s.path,
		Backend:  "bolt",
	}, nil
}

// Clear removes all chunks and vectors. Schema info is kept.
func (s *BoltStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketVectors} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}

	s.index.Reset()
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
