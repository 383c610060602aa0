package port

import (
	"context"

	"legalrag/internal/domain"
)

// DocumentParser turns a file on disk into a Document.
type DocumentParser interface {
	ParseFile(ctx context.Context, path string) (*domain.Document, error)
	Supports(path string) bool
}
