// Package app builds the component graph once at startup and hands it to
// the CLI and HTTP front ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"legalrag/config"
	"legalrag/internal/adapter/cache"
	"legalrag/internal/adapter/chunker"
	"legalrag/internal/adapter/compressor"
	"legalrag/internal/adapter/embedding"
	"legalrag/internal/adapter/lingua"
	"legalrag/internal/adapter/llm"
	"legalrag/internal/adapter/memstore"
	"legalrag/internal/adapter/parser"
	"legalrag/internal/adapter/store"
	"legalrag/internal/logging"
	"legalrag/internal/port"
	"legalrag/internal/usecase"
)

const (
	deepseekBaseURL = "https://api.deepseek.com/v1"
	localBaseURL    = "http://localhost:11434/v1"
)

// Options override parts of the graph. Zero values use the configuration.
type Options struct {
	// RootDir resolves relative store paths. Defaults to the working directory.
	RootDir string
	Logger  *slog.Logger

	Embedder         port.Embedder
	Generator        port.Generator
	CompressionModel port.CompressionModel
}

// App holds every long-lived component. It is safe for concurrent queries.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store   port.Store
	Parser  *parser.Parser
	Walker  *parser.Walker
	Chunker *chunker.LegalChunker

	// Compression is the probed strategy. Compressor is nil when
	// compression is disabled.
	Compression compressor.Selection
	Compressor  port.Compressor
	Generator   port.Generator

	Query  *usecase.QueryUseCase
	Ingest *usecase.IngestUseCase

	closers []func() error
}

// New wires the application from cfg. The compression model is probed
// here, once.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	}

	rootDir := opts.RootDir
	if rootDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		rootDir = wd
	}

	a := &App{Config: cfg, Logger: logger}

	embedder := opts.Embedder
	if embedder == nil {
		var err error
		embedder, err = a.newEmbedder()
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	st, err := a.newStore(ctx, rootDir, embedder)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, st.Close)
	if cfg.Retrieve.CacheSize > 0 {
		ttl := time.Duration(cfg.Retrieve.CacheTTLSecs) * time.Second
		st = cache.NewCachedStore(st, cache.NewQueryCache(cfg.Retrieve.CacheSize, ttl))
	}
	a.Store = st

	a.Parser = parser.NewParser()
	a.Walker = parser.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	a.Chunker = chunker.NewLegalChunker(cfg.Chunk.Size, cfg.Chunk.Overlap, cfg.Chunk.RespectSections)

	if cfg.Compression.Enabled {
		model := opts.CompressionModel
		if model == nil && cfg.Compression.ServiceURL != "" {
			model = lingua.NewClient(cfg.Compression.ServiceURL, time.Duration(cfg.Compression.TimeoutSecs)*time.Second)
		}
		a.Compression = compressor.Select(ctx, compressor.SelectOptions{
			Strategy:    cfg.Compression.Strategy,
			TargetRatio: cfg.Compression.TargetRatio,
			ForceKeep:   cfg.Compression.ForceTokens,
			Model:       model,
			Logger:      logger,
		})
		a.Compressor = a.Compression.Compressor()
	} else {
		logger.Info("context compression disabled")
	}

	a.Generator = opts.Generator
	if a.Generator == nil {
		a.Generator, err = a.newGenerator()
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Query = usecase.NewQueryUseCase(a.Store, a.Compressor, a.Generator, usecase.QueryConfig{
		TopK:             cfg.Retrieve.TopK,
		MaxContextTokens: cfg.Compression.MaxContextTokens,
		Model:            cfg.Generation.Model,
		Temperature:      cfg.Generation.Temperature,
		MaxTokens:        cfg.Generation.MaxTokens,
	}, logger)
	a.Ingest = usecase.NewIngestUseCase(a.Parser, a.Walker, a.Chunker, a.Store, cfg.Store.BatchSize, logger)

	return a, nil
}

func (a *App) newEmbedder() (port.Embedder, error) {
	ec := a.Config.Embedding
	switch ec.Provider {
	case "openai", "":
		return embedding.NewOpenAIEmbedder(ec.APIKeyEnv, ec.Model, ec.BaseURL, ec.Dimension, ec.BatchSize), nil
	case "gemini":
		e := embedding.NewGeminiEmbedder(ec.APIKeyEnv, ec.Model, ec.Dimension, ec.BatchSize)
		a.closers = append(a.closers, e.Close)
		return e, nil
	case "hash":
		return embedding.NewHashEmbedder(ec.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedding.provider %q", config.ErrInvalid, ec.Provider)
	}
}

func (a *App) newStore(ctx context.Context, rootDir string, embedder port.Embedder) (port.Store, error) {
	sc := a.Config.Store
	switch sc.Type {
	case "memory":
		return memstore.NewMemoryStore(sc.Collection, embedder), nil

	case "pgvector":
		dsn := os.Getenv(sc.DSNEnv)
		if dsn == "" {
			return nil, fmt.Errorf("database URL not found in environment variable: %s", sc.DSNEnv)
		}
		pg, err := store.NewPGVectorStore(ctx, dsn, sc.Collection, embedder)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil

	default:
		if err := a.Config.EnsureDataDir(rootDir); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		bolt, err := store.NewBoltStore(a.Config.StorePath(rootDir), sc.Collection, embedder)
		if err != nil {
			return nil, fmt.Errorf("failed to open index store: %w", err)
		}
		if err := a.migrate(ctx, bolt); err != nil {
			bolt.Close()
			return nil, err
		}
		return bolt, nil
	}
}

// migrate brings the bolt schema up to date and clears the index when the
// chunking or embedding configuration changed since it was built.
func (a *App) migrate(ctx context.Context, bolt *store.BoltStore) error {
	result, err := bolt.CheckMigration(a.Config)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}

	switch {
	case result.OldVersion > result.NewVersion:
		return errors.New(result.Reason)
	case result.NeedsRebuild:
		a.Logger.Warn("clearing index", "reason", result.Reason)
		if err := bolt.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	case result.NeedsMigration:
		a.Logger.Info("running schema migration", "reason", result.Reason)
	default:
		return nil
	}

	if err := bolt.Migrate(a.Config); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (a *App) newGenerator() (port.Generator, error) {
	gc := a.Config.Generation
	timeout := time.Duration(gc.TimeoutSecs) * time.Second

	switch gc.Provider {
	case "openai", "":
		return llm.NewOpenAIClient(gc.APIKeyEnv, gc.Model, gc.BaseURL, timeout), nil
	case "deepseek":
		baseURL := gc.BaseURL
		if baseURL == "" {
			baseURL = deepseekBaseURL
		}
		return llm.NewOpenAIClient(gc.APIKeyEnv, gc.Model, baseURL, timeout), nil
	case "local":
		baseURL := gc.BaseURL
		if baseURL == "" {
			baseURL = localBaseURL
		}
		return llm.NewOpenAIClient("", gc.Model, baseURL, timeout), nil
	case "gemini":
		g := llm.NewGeminiClient(gc.APIKeyEnv, gc.Model)
		a.closers = append(a.closers, g.Close)
		return g, nil
	default:
		return nil, fmt.Errorf("%w: unknown generation.provider %q", config.ErrInvalid, gc.Provider)
	}
}

// Close releases stores and clients in reverse creation order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
