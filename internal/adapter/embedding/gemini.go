package embedding

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiEmbedder embeds text with a Gemini embedding model. The client is
// created on the first Embed call.
type GeminiEmbedder struct {
	apiKeyEnv string
	model     string
	dimension int
	batchSize int

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiEmbedder(apiKeyEnv, model string, dimension, batchSize int) *GeminiEmbedder {
	if model == "" {
		model = "text-embedding-004"
	}
	if dimension <= 0 {
		dimension = 768
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &GeminiEmbedder{
		apiKeyEnv: apiKeyEnv,
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
	}
}

func (e *GeminiEmbedder) genaiClient(ctx context.Context) (*genai.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		return e.client, nil
	}

	apiKey := os.Getenv(e.apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrMissingCredentials, e.apiKeyEnv)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	e.client = client
	return client, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client, err := e.genaiClient(ctx)
	if err != nil {
		return nil, err
	}

	em := client.EmbeddingModel(e.model)
	out := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := em.NewBatch()
		for _, text := range texts[i:end] {
			batch.AddContent(genai.Text(text))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gemini embedding failed: %w", err)
		}
		if len(resp.Embeddings) != end-i {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), end-i)
		}
		for _, emb := range resp.Embeddings {
			out = append(out, emb.Values)
		}
	}

	return out, nil
}

func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

func (e *GeminiEmbedder) ModelName() string {
	return e.model
}

// Close releases the client if one was created.
func (e *GeminiEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
