// Package compressor shrinks retrieved legal context to fit a model's
// token budget without altering citations.
package compressor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"legalrag/internal/adapter/analyzer"
	"legalrag/internal/domain"
	"legalrag/internal/logging"
	"legalrag/internal/port"
)

// Strategy names accepted in configuration.
const (
	StrategyAuto       = "auto"
	StrategyModel      = "model"
	StrategyExtractive = "extractive"
)

// LegalPreserveTerms are always passed to the compression model as
// force-keep tokens.
var LegalPreserveTerms = []string{
	"holding", "held", "affirmed", "reversed", "remanded",
	"plaintiff", "defendant", "appellant", "appellee",
	"judgment", "order", "motion", "petition", "writ",
	"statute", "regulation", "constitutional", "amendment",
	"precedent", "stare decisis", "ratio decidendi",
	"obiter dictum", "prima facie", "de facto", "de jure",
}

// ForceKeep returns the caller's terms followed by LegalPreserveTerms,
// without duplicates and in first-seen order.
func ForceKeep(extra ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(terms []string) {
		for _, t := range terms {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, terms := range extra {
		add(terms)
	}
	add(LegalPreserveTerms)
	return out
}

// newResult fills in token counts and ratio for a finished compression.
func newResult(original, compressed, method string, citations []string) domain.CompressionResult {
	origTokens := analyzer.EstimateTokens(original)
	compTokens := analyzer.EstimateTokens(compressed)
	ratio := 1.0
	if origTokens > 0 {
		ratio = float64(compTokens) / float64(origTokens)
	}
	if citations == nil {
		citations = []string{}
	}
	return domain.CompressionResult{
		CompressedText:     compressed,
		OriginalTokens:     origTokens,
		CompressedTokens:   compTokens,
		CompressionRatio:   ratio,
		PreservedCitations: citations,
		Method:             method,
	}
}

// FormatStats renders a one-line summary of a compression result.
func FormatStats(r domain.CompressionResult) string {
	return fmt.Sprintf("Compression: %d -> %d tokens (%.1f%% of original, %.1f%% savings)",
		r.OriginalTokens, r.CompressedTokens, r.CompressionRatio*100, (1-r.CompressionRatio)*100)
}

// Kind identifies which strategy a Selection holds.
type Kind int

const (
	KindExtractive Kind = iota
	KindModel
)

func (k Kind) String() string {
	if k == KindModel {
		return StrategyModel
	}
	return StrategyExtractive
}

// Selection is the outcome of the startup capability probe. Exactly one
// of Model and Extractive is set, as indicated by Kind.
type Selection struct {
	Kind       Kind
	Model      *ModelCompressor
	Extractive *ExtractiveCompressor
	// Reason explains a fallback to the extractive strategy.
	Reason string
}

// Compressor returns the selected strategy.
func (s Selection) Compressor() port.Compressor {
	if s.Kind == KindModel {
		return s.Model
	}
	return s.Extractive
}

// SelectOptions configures Select.
type SelectOptions struct {
	Strategy    string
	TargetRatio float64
	ForceKeep   []string
	Model       port.CompressionModel
	Logger      *slog.Logger
}

// Select probes the compression model once and returns the model
// strategy when it answers, or the extractive strategy otherwise.
func Select(ctx context.Context, opts SelectOptions) Selection {
	logger := logging.OrDefault(opts.Logger)

	extractive := func(reason string) Selection {
		return Selection{
			Kind:       KindExtractive,
			Extractive: NewExtractiveCompressor(opts.TargetRatio),
			Reason:     reason,
		}
	}

	if opts.Strategy == StrategyExtractive {
		logger.Info("using extractive compressor", "reason", "configured")
		return extractive("configured")
	}
	if opts.Model == nil {
		logger.Warn("compression model not configured, falling back to extractive compressor")
		return extractive("compression model not configured")
	}
	if err := opts.Model.Probe(ctx); err != nil {
		logger.Warn("compression model unavailable, falling back to extractive compressor", "error", err)
		return extractive(err.Error())
	}

	logger.Info("using model compressor", "target_ratio", opts.TargetRatio)
	return Selection{
		Kind:  KindModel,
		Model: NewModelCompressor(opts.Model, opts.TargetRatio, opts.ForceKeep),
	}
}
