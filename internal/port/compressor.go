package port

import (
	"context"

	"legalrag/internal/domain"
)

// CompressOptions controls a single compression call.
type CompressOptions struct {
	Query             string
	PreserveCitations bool
	// Ratio overrides the configured target ratio for this call when > 0.
	Ratio float64
	// ForceKeep lists extra terms the compressor must not drop.
	ForceKeep []string
}

// Compressor shrinks context text while keeping citations intact.
type Compressor interface {
	Compress(ctx context.Context, text string, opts CompressOptions) (domain.CompressionResult, error)

	// TargetRatio returns the configured compressed/original ratio.
	TargetRatio() float64

	// Method names the strategy, e.g. "model" or "extractive".
	Method() string
}

// CompressionRequest is sent to an external compression model.
type CompressionRequest struct {
	Context     string   `json:"context"`
	Query       string   `json:"query,omitempty"`
	Rate        float64  `json:"rate"`
	ForceTokens []string `json:"force_tokens"`
}

// CompressionModel drops low-information tokens from a prompt.
type CompressionModel interface {
	Compress(ctx context.Context, req CompressionRequest) (string, error)

	// Probe reports whether the model is reachable.
	Probe(ctx context.Context) error
}
