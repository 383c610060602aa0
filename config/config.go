package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for the legal RAG pipeline.
type Config struct {
	Chunk       ChunkConfig       `yaml:"chunk"`
	Compression CompressionConfig `yaml:"compression"`
	Retrieve    RetrieveConfig    `yaml:"retrieve"`
	Generation  GenerationConfig  `yaml:"generation"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Store       StoreConfig       `yaml:"store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ChunkConfig holds document segmentation settings. Sizes are characters.
type ChunkConfig struct {
	Size            int  `yaml:"size"`
	Overlap         int  `yaml:"overlap"`
	RespectSections bool `yaml:"respect_sections"`
}

// CompressionConfig holds context compression settings.
type CompressionConfig struct {
	Enabled          bool     `yaml:"enabled"`
	TargetRatio      float64  `yaml:"target_ratio"`
	MaxContextTokens int      `yaml:"max_context_tokens"`
	Strategy         string   `yaml:"strategy"` // "auto", "model", "extractive"
	ServiceURL       string   `yaml:"service_url"`
	ForceTokens      []string `yaml:"force_tokens"`
	TimeoutSecs      int      `yaml:"timeout_secs"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK         int `yaml:"top_k"`
	CacheSize    int `yaml:"cache_size"` // 0 disables the search cache
	CacheTTLSecs int `yaml:"cache_ttl_secs"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "gemini", "deepseek", "local"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "gemini", "hash"
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// StoreConfig selects and configures the chunk store.
type StoreConfig struct {
	Type       string `yaml:"type"` // "bolt", "memory", "pgvector"
	Path       string `yaml:"path"` // bolt file, relative to the root directory
	Collection string `yaml:"collection"`
	DSNEnv     string `yaml:"dsn_env"`
	BatchSize  int    `yaml:"batch_size"`
}

// IngestConfig holds directory ingestion patterns.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunk: ChunkConfig{
			Size:            1000,
			Overlap:         200,
			RespectSections: true,
		},
		Compression: CompressionConfig{
			Enabled:          true,
			TargetRatio:      0.5,
			MaxContextTokens: 8000,
			Strategy:         "auto",
			ServiceURL:       "http://localhost:8765",
			ForceTokens:      []string{},
			TimeoutSecs:      60,
		},
		Retrieve: RetrieveConfig{
			TopK:         10,
			CacheSize:    128,
			CacheTTLSecs: 300,
		},
		Generation: GenerationConfig{
			Provider:    "openai",
			Model:       "gpt-4-turbo-preview",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.1,
			MaxTokens:   2000,
			TimeoutSecs: 120,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		Store: StoreConfig{
			Type:       "bolt",
			Path:       filepath.Join(".legalrag", "index.db"),
			Collection: "legal_documents",
			DSNEnv:     "DATABASE_URL",
			BatchSize:  100,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.pdf", "**/*.docx", "**/*.txt", "**/*.md"},
			Excludes: []string{"**/.git/**", "**/.legalrag/**", "**/node_modules/**", "**/~$*"},
		},
		Server: ServerConfig{
			Addr: ":8000",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for legalrag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "legalrag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".legalrag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Chunk.Size <= 0:
		return fmt.Errorf("%w: chunk.size must be positive, got %d", ErrInvalid, c.Chunk.Size)
	case c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size:
		return fmt.Errorf("%w: chunk.overlap must be in [0, %d), got %d", ErrInvalid, c.Chunk.Size, c.Chunk.Overlap)
	case c.Compression.TargetRatio <= 0 || c.Compression.TargetRatio > 1:
		return fmt.Errorf("%w: compression.target_ratio must be in (0, 1], got %g", ErrInvalid, c.Compression.TargetRatio)
	case c.Retrieve.TopK <= 0:
		return fmt.Errorf("%w: retrieve.top_k must be positive, got %d", ErrInvalid, c.Retrieve.TopK)
	}

	switch c.Compression.Strategy {
	case "auto", "model", "extractive":
	default:
		return fmt.Errorf("%w: unknown compression.strategy %q", ErrInvalid, c.Compression.Strategy)
	}
	switch c.Store.Type {
	case "bolt", "memory", "pgvector":
	default:
		return fmt.Errorf("%w: unknown store.type %q", ErrInvalid, c.Store.Type)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StorePath resolves the bolt store path against dir.
func (c *Config) StorePath(dir string) string {
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(dir, c.Store.Path)
}

// EnsureDataDir ensures the directory holding the bolt store exists.
func (c *Config) EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Dir(c.StorePath(dir)), 0755)
}
