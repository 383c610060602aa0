package port

import "legalrag/internal/domain"

// Chunker splits a document into ordered chunks.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)
}
