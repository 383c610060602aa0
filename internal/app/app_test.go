package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"legalrag/config"
	"legalrag/internal/adapter/cache"
	"legalrag/internal/adapter/compressor"
	"legalrag/internal/adapter/embedding"
	"legalrag/internal/adapter/llm"
	"legalrag/internal/domain"
	"legalrag/internal/logging"
	"legalrag/internal/port"
	"legalrag/internal/usecase"
)

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, req port.GenerationRequest) (string, error) {
	return "answer", nil
}
func (echoGenerator) ModelName() string { return "echo" }

type downModel struct{}

func (downModel) Compress(ctx context.Context, req port.CompressionRequest) (string, error) {
	return "", errors.New("down")
}
func (downModel) Probe(ctx context.Context) error { return errors.New("connection refused") }

func testConfig(storeType string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Store.Type = storeType
	cfg.Embedding.Provider = "hash"
	cfg.Embedding.Dimension = 128
	return cfg
}

func TestNew_MemoryStore(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Compression.Strategy = "extractive"

	a, err := New(context.Background(), cfg, Options{Logger: logging.Discard(), Generator: echoGenerator{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*cache.CachedStore); !ok {
		t.Errorf("expected cached store, got %T", a.Store)
	}
	if a.Compression.Kind != compressor.KindExtractive || a.Compressor == nil {
		t.Errorf("expected extractive compressor, got %+v", a.Compression)
	}

	stats, err := a.Store.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Backend != "memory" || stats.Name != "legal_documents" {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestNew_ModelUnavailableFallsBack(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Retrieve.CacheSize = 0

	a, err := New(context.Background(), cfg, Options{
		Logger:           logging.Discard(),
		Generator:        echoGenerator{},
		CompressionModel: downModel{},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.Compression.Kind != compressor.KindExtractive || a.Compression.Reason == "" {
		t.Errorf("expected extractive fallback with a reason, got %+v", a.Compression)
	}
	if _, ok := a.Store.(*cache.CachedStore); ok {
		t.Error("cache_size 0 must not wrap the store")
	}
}

func TestNew_CompressionDisabled(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Compression.Enabled = false

	a, err := New(context.Background(), cfg, Options{Logger: logging.Discard(), Generator: echoGenerator{}})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.Compressor != nil {
		t.Errorf("expected no compressor, got %T", a.Compressor)
	}
}

func TestNew_BoltStoreRebuildsOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cfg := testConfig("bolt")
	cfg.Compression.Strategy = "extractive"
	opts := Options{RootDir: dir, Logger: logging.Discard(), Generator: echoGenerator{}}

	a, err := New(ctx, cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	docs := []domain.Document{{ID: "brown", Content: "Separate is unequal.", Metadata: domain.DocumentMetadata{Filename: "brown.txt"}}}
	if _, err := a.Ingest.IngestDocuments(ctx, docs); err != nil {
		t.Fatal(err)
	}
	a.Close()

	if _, err := os.Stat(filepath.Join(dir, ".legalrag", "index.db")); err != nil {
		t.Fatalf("expected bolt file under the root directory: %v", err)
	}

	// Same configuration keeps the data.
	a, err = New(ctx, cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	if stats, _ := a.Store.Stats(ctx); stats.Count != 1 {
		t.Errorf("expected 1 chunk after reopen, got %d", stats.Count)
	}
	a.Close()

	// A different chunk size invalidates the index.
	cfg.Chunk.Size = 500
	a, err = New(ctx, cfg, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if stats, _ := a.Store.Stats(ctx); stats.Count != 0 {
		t.Errorf("expected cleared index, got %d chunks", stats.Count)
	}
}

func TestNew_UnknownProviders(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Embedding.Provider = "word2vec"
	if _, err := New(context.Background(), cfg, Options{Logger: logging.Discard()}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid for embedding provider, got %v", err)
	}

	cfg = testConfig("memory")
	cfg.Generation.Provider = "oracle"
	cfg.Compression.Enabled = false
	_, err := New(context.Background(), cfg, Options{Logger: logging.Discard(), Embedder: embedding.NewHashEmbedder(8)})
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid for generation provider, got %v", err)
	}
}

func TestNew_GeneratorProviders(t *testing.T) {
	for _, provider := range []string{"openai", "deepseek", "local", "gemini"} {
		cfg := testConfig("memory")
		cfg.Generation.Provider = provider
		cfg.Compression.Enabled = false

		a, err := New(context.Background(), cfg, Options{Logger: logging.Discard()})
		if err != nil {
			t.Errorf("%s: unexpected error: %v", provider, err)
			continue
		}
		if a.Generator == nil {
			t.Errorf("%s: expected a generator", provider)
		}
		a.Close()
	}
}

func TestNew_MissingCredentialsFailOnFirstUse(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.Store.Type = "memory"
	cfg.Compression.Strategy = "extractive"

	a, err := New(ctx, cfg, Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("expected startup without credentials, got %v", err)
	}
	defer a.Close()

	if _, err := a.Store.Stats(ctx); err != nil {
		t.Fatalf("stats should not need credentials: %v", err)
	}

	chunks := []domain.Chunk{{ID: "brown#0", Content: "Separate is unequal."}}
	if _, err := a.Store.Add(ctx, chunks); !errors.Is(err, llm.ErrMissingCredentials) {
		t.Errorf("expected embedding to fail with ErrMissingCredentials, got %v", err)
	}

	// A local embedder gets past retrieval so generation is reached.
	a2, err := New(ctx, cfg, Options{Logger: logging.Discard(), Embedder: embedding.NewHashEmbedder(64)})
	if err != nil {
		t.Fatal(err)
	}
	defer a2.Close()

	docs := []domain.Document{{ID: "brown", Content: "Separate educational facilities are inherently unequal.", Metadata: domain.DocumentMetadata{Filename: "brown.txt"}}}
	if _, err := a2.Ingest.IngestDocuments(ctx, docs); err != nil {
		t.Fatal(err)
	}

	_, err = a2.Query.Query(ctx, "Are separate facilities unequal?", usecase.QueryOptions{})
	if !errors.Is(err, llm.ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials from Query, got %v", err)
	}
	if !errors.Is(err, usecase.ErrQueryFailed) {
		t.Errorf("expected ErrQueryFailed wrapper, got %v", err)
	}
}
