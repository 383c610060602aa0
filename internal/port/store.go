package port

import (
	"context"

	"legalrag/internal/domain"
)

// Store persists chunks and answers similarity searches over them.
type Store interface {
	// Add stores the chunks and returns how many were added.
	Add(ctx context.Context, chunks []domain.Chunk) (int, error)

	// Search returns up to topK matches ordered by descending similarity.
	// A non-empty filter restricts results to exact metadata matches.
	Search(ctx context.Context, query string, topK int, filter domain.Filter) ([]domain.RetrievedMatch, error)

	// Stats describes the store.
	Stats(ctx context.Context) (domain.StoreStats, error)

	// Clear removes every stored chunk.
	Clear(ctx context.Context) error

	Close() error
}
