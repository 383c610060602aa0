package store

import (
	"context"

	"legalrag/internal/domain"
	"legalrag/internal/port"
)

// SearchBySection searches only chunks from the named section.
func SearchBySection(ctx context.Context, s port.Store, query, section string, topK int) ([]domain.RetrievedMatch, error) {
	return s.Search(ctx, query, topK, domain.Filter{domain.KeySection: section})
}

// SearchByCase searches only chunks of the named case.
func SearchByCase(ctx context.Context, s port.Store, query, caseName string, topK int) ([]domain.RetrievedMatch, error) {
	return s.Search(ctx, query, topK, domain.Filter{domain.KeyCaseName: caseName})
}
