package compressor

import (
	"context"
	"fmt"
	"strings"

	"legalrag/internal/adapter/analyzer"
	"legalrag/internal/domain"
	"legalrag/internal/port"
)

// budgetMargin leaves headroom below the token budget when the ratio has
// to be tightened.
const budgetMargin = 0.9

// EffectiveRatio returns the ratio to use for a context of currentTokens
// so that the output fits maxTokens. The configured ratio is kept unless
// it would overshoot the budget.
func EffectiveRatio(currentTokens, maxTokens int, configured float64) float64 {
	if currentTokens <= 0 || maxTokens <= 0 {
		return configured
	}
	if float64(currentTokens)*configured > float64(maxTokens) {
		return float64(maxTokens) / float64(currentTokens) * budgetMargin
	}
	return configured
}

// JoinSources renders matches as "[Source: <filename>]" blocks separated
// by horizontal rules.
func JoinSources(matches []domain.RetrievedMatch) string {
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m.Metadata.Filename
		if name == "" {
			name = "Unknown"
		}
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", name, m.Content))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// CompressToBudget joins matches and compresses them to at most
// maxTokens estimated tokens.
func CompressToBudget(ctx context.Context, c port.Compressor, matches []domain.RetrievedMatch, query string, maxTokens int) (domain.CompressionResult, error) {
	return FitToBudget(ctx, c, JoinSources(matches), query, maxTokens)
}

// FitToBudget compresses text with citations preserved, tightening the
// ratio for this call only when the configured ratio would exceed
// maxTokens.
func FitToBudget(ctx context.Context, c port.Compressor, text, query string, maxTokens int) (domain.CompressionResult, error) {
	ratio := EffectiveRatio(analyzer.EstimateTokens(text), maxTokens, c.TargetRatio())
	return c.Compress(ctx, text, port.CompressOptions{
		Query:             query,
		PreserveCitations: true,
		Ratio:             ratio,
	})
}
