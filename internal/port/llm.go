package port

import (
	"context"
	"errors"
)

// ErrMissingCredentials is returned on the first remote call when the
// configured API key environment variable is empty.
var ErrMissingCredentials = errors.New("missing API credentials")

// GenerationRequest is one chat completion request.
type GenerationRequest struct {
	Model         string
	SystemMessage string
	UserMessage   string
	Temperature   float64
	MaxTokens     int
}

// Generator represents a language model for answer generation.
type Generator interface {
	// Generate returns the model's text for the request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)

	// ModelName returns the name of the default model.
	ModelName() string
}
