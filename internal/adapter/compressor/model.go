package compressor

import (
	"context"
	"fmt"
	"sort"

	"legalrag/internal/adapter/citation"
	"legalrag/internal/domain"
	"legalrag/internal/port"
)

// ModelCompressor delegates token dropping to an external compression
// model and guards citations around the call.
type ModelCompressor struct {
	model     port.CompressionModel
	ratio     float64
	forceKeep []string
}

func NewModelCompressor(model port.CompressionModel, targetRatio float64, forceKeep []string) *ModelCompressor {
	return &ModelCompressor{
		model:     model,
		ratio:     targetRatio,
		forceKeep: forceKeep,
	}
}

func (c *ModelCompressor) TargetRatio() float64 { return c.ratio }

func (c *ModelCompressor) Method() string { return StrategyModel }

func (c *ModelCompressor) Compress(ctx context.Context, text string, opts port.CompressOptions) (domain.CompressionResult, error) {
	ratio := c.ratio
	if opts.Ratio > 0 {
		ratio = opts.Ratio
	}

	input := text
	var placeholders citation.PlaceholderMap
	var preserved []string
	if opts.PreserveCitations {
		protected := citation.Protect(text)
		input = protected.Text
		placeholders = protected.Map()
		preserved = uniqueSorted(placeholders)
	}

	out, err := c.model.Compress(ctx, port.CompressionRequest{
		Context:     input,
		Query:       opts.Query,
		Rate:        ratio,
		ForceTokens: ForceKeep(opts.ForceKeep, c.forceKeep),
	})
	if err != nil {
		return domain.CompressionResult{}, fmt.Errorf("compression model failed: %w", err)
	}
	if out == "" {
		out = input
	}

	return newResult(text, citation.Restore(out, placeholders), StrategyModel, preserved), nil
}

func uniqueSorted(m citation.PlaceholderMap) []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, cite := range m {
		if _, ok := seen[cite]; ok {
			continue
		}
		seen[cite] = struct{}{}
		out = append(out, cite)
	}
	sort.Strings(out)
	return out
}
