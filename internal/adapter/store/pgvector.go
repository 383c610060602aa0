package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"legalrag/internal/domain"
	"legalrag/internal/port"
)

// chunkNamespace seeds deterministic row ids so that re-ingesting a chunk
// updates its row instead of duplicating it.
var chunkNamespace = uuid.MustParse("6f1c3a52-4b1e-4d0a-9a57-0d2f3c8e7b11")

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// PGVectorStore keeps chunks in a Postgres table with a pgvector column.
type PGVectorStore struct {
	pool     *pgxpool.Pool
	table    string
	embedder port.Embedder
}

// NewPGVectorStore connects to dsn and uses one table per collection.
func NewPGVectorStore(ctx context.Context, dsn, collection string, embedder port.Embedder) (*PGVectorStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PGVectorStore{
		pool:     pool,
		table:    TableName(collection),
		embedder: embedder,
	}, nil
}

// TableName turns a collection name into a safe SQL identifier.
func TableName(collection string) string {
	name := nonIdent.ReplaceAllString(strings.ToLower(collection), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "legal_documents"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "c_" + name
	}
	return name
}

// EnsureSchema creates the vector extension, table and indexes.
func (s *PGVectorStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			chunk_id TEXT NOT NULL,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding vector(%d)
		)`, s.table, s.embedder.Dimension()),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_metadata ON %s USING gin (metadata)", s.table, s.table),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)", s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// formatVector formats an embedding vector as a pgvector literal.
func formatVector(embedding []float32) string {
	if len(embedding) == 0 {
		return "[]"
	}
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%.6f", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (s *PGVectorStore) Add(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, chunk_id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5::vector)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding`, s.table)

	batch := &pgx.Batch{}
	for i, c := range chunks {
		meta, err := json.Marshal(c.Record().Fields())
		if err != nil {
			return 0, fmt.Errorf("failed to encode metadata for %s: %w", c.ID, err)
		}
		id := uuid.NewSHA1(chunkNamespace, []byte(StoredID(c)))
		batch.Queue(query, id, c.ID, c.Content, meta, formatVector(vectors[i]))
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range chunks {
		if _, err := results.Exec(); err != nil {
			return i, fmt.Errorf("failed to insert chunk %s: %w", chunks[i].ID, err)
		}
	}
	return len(chunks), nil
}

func (s *PGVectorStore) Search(ctx context.Context, query string, topK int, filter domain.Filter) ([]domain.RetrievedMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	filterJSON, err := json.Marshal(map[string]string(filter))
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		filterJSON = []byte("{}")
	}

	sql := fmt.Sprintf(`
		SELECT
			chunk_id,
			content,
			metadata,
			embedding <=> $1::vector AS distance
		FROM %s
		WHERE metadata @> $2::jsonb
		ORDER BY
			embedding <=> $1::vector
		LIMIT $3`, s.table)

	rows, err := s.pool.Query(ctx, sql, formatVector(vectors[0]), filterJSON, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var matches []domain.RetrievedMatch
	for rows.Next() {
		var (
			id, content string
			meta        []byte
			distance    float64
		)
		if err := rows.Scan(&id, &content, &meta, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		fields := map[string]string{}
		if err := json.Unmarshal(meta, &fields); err != nil {
			return nil, fmt.Errorf("corrupt metadata for %s: %w", id, err)
		}
		matches = append(matches, domain.RetrievedMatch{
			ID:         id,
			Content:    content,
			Similarity: distanceToSimilarity(distance),
			Metadata:   domain.MetadataFromFields(fields),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}
	return matches, nil
}

// distanceToSimilarity converts cosine distance to a [0, 1] similarity.
func distanceToSimilarity(d float64) float64 {
	sim := 1 - d
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

func (s *PGVectorStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	var count int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count); err != nil {
		return domain.StoreStats{}, fmt.Errorf("failed to count chunks: %w", err)
	}
	return domain.StoreStats{
		Name:     s.table,
		Count:    count,
		Location: s.pool.Config().ConnConfig.Host,
		Backend:  "pgvector",
	}, nil
}

func (s *PGVectorStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", s.table)); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

func (s *PGVectorStore) Close() error {
	s.pool.Close()
	return nil
}
