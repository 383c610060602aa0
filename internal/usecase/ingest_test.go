package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"legalrag/internal/adapter/chunker"
	"legalrag/internal/adapter/compressor"
	"legalrag/internal/adapter/embedding"
	"legalrag/internal/adapter/memstore"
	"legalrag/internal/adapter/parser"
	"legalrag/internal/domain"
	"legalrag/internal/logging"
)

type stubParser struct {
	fail map[string]error
}

func (p *stubParser) ParseFile(ctx context.Context, path string) (*domain.Document, error) {
	if err := p.fail[path]; err != nil {
		return nil, err
	}
	return &domain.Document{
		ID:       path,
		Content:  "Paragraph one of " + path + ".\n\nParagraph two.",
		Metadata: domain.DocumentMetadata{Filename: path},
	}, nil
}

func (p *stubParser) Supports(path string) bool { return true }

type stubLister []string

func (l stubLister) Walk(root string) ([]string, error) { return l, nil }

func TestAddChunks_BatchFailureContinues(t *testing.T) {
	store := &fakeStore{addErrAt: map[int]error{1: errors.New("timeout")}}
	u := NewIngestUseCase(nil, nil, nil, store, 2, logging.Discard())

	chunks := make([]domain.Chunk, 5)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: fmt.Sprintf("c%d", i)}
	}

	var progress []int
	stored := u.AddChunks(context.Background(), chunks, func(stage string, done, total int) {
		if stage != StageStore || total != 5 {
			t.Errorf("unexpected progress %s %d/%d", stage, done, total)
		}
		progress = append(progress, done)
	})

	if stored != 3 {
		t.Errorf("expected 3 stored (second batch failed), got %d", stored)
	}
	if len(store.batches) != 3 || len(store.batches[2]) != 1 {
		t.Errorf("expected batches of 2,2,1, got %d batches", len(store.batches))
	}
	if fmt.Sprint(progress) != "[2 4 5]" {
		t.Errorf("unexpected progress %v", progress)
	}
}

func TestIngestDir_RecordsFailures(t *testing.T) {
	store := &fakeStore{}
	p := &stubParser{fail: map[string]error{"b.rtf": parser.ErrUnsupportedFormat}}
	u := NewIngestUseCase(p, stubLister{"a.txt", "b.rtf", "c.txt"}, chunker.NewLegalChunker(1000, 100, true), store, 100, logging.Discard())

	result, err := u.IngestDir(context.Background(), "/cases", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Documents != 2 {
		t.Errorf("expected 2 documents, got %d", result.Documents)
	}
	if len(result.Errors) != 1 || result.Errors[0].Path != "b.rtf" {
		t.Fatalf("expected one recorded failure, got %+v", result.Errors)
	}
	if !strings.Contains(result.Errors[0].Error, "unsupported") {
		t.Errorf("unexpected error text %q", result.Errors[0].Error)
	}
	if result.Chunks != 2 || result.Stored != 2 {
		t.Errorf("expected 2 chunks stored, got %+v", result)
	}
}

func TestIngestDocuments(t *testing.T) {
	store := &fakeStore{}
	u := NewIngestUseCase(nil, nil, chunker.NewLegalChunker(1000, 100, true), store, 10, logging.Discard())

	docs := []domain.Document{
		{ID: "brown", Content: "Separate is unequal.", Metadata: domain.DocumentMetadata{Filename: "brown.txt"}},
		{ID: "empty", Content: ""},
	}
	result, err := u.IngestDocuments(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if result.Documents != 2 || result.Chunks != 1 || result.Stored != 1 {
		t.Errorf("unexpected result %+v", result)
	}
}

// TestEndToEnd ingests real files into an in-memory store and answers a
// query with the extractive compressor.
func TestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	brown := `Brown v. Board of Education
Supreme Court of the United States

HOLDING
We conclude that in the field of public education separate facilities are inherently unequal. The court held that segregation violates equal protection, see Brown v. Board, 347 U.S. 483 (1954). The weather in Topeka was mild that spring. Nobody remembers the lunch menu.
`
	memo := "Internal memo about parking spaces.\n"
	if err := os.WriteFile(filepath.Join(dir, "brown.txt"), []byte(brown), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "memo.txt"), []byte(memo), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "brief.rtf"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	store := memstore.NewMemoryStore("cases", embedding.NewHashEmbedder(256))
	ingest := NewIngestUseCase(
		parser.NewParser(),
		parser.NewWalker([]string{"**/*"}, nil),
		chunker.NewLegalChunker(1000, 200, true),
		store, 100, logging.Discard(),
	)

	result, err := ingest.IngestDir(ctx, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Documents != 2 || len(result.Errors) != 1 || result.Stored == 0 {
		t.Fatalf("unexpected ingest result %+v", result)
	}

	gen := &fakeGenerator{answer: "Separate facilities are inherently unequal."}
	query := NewQueryUseCase(store, compressor.NewExtractiveCompressor(0.5), gen, DefaultQueryConfig(), logging.Discard())

	resp, err := query.AnalyzeCase(ctx, "Brown v. Board of Education")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Sources) == 0 {
		t.Fatal("expected sources for the analysed case")
	}
	for _, s := range resp.Sources {
		if s.Metadata.CaseName != "Brown v. Board of Education" {
			t.Errorf("case filter leaked %+v", s.Metadata)
		}
	}
	if !strings.Contains(resp.CompressedContext, "347 U.S. 483") {
		t.Errorf("citation lost in compressed context: %q", resp.CompressedContext)
	}
	if resp.CompressionMethod != "extractive" {
		t.Errorf("expected extractive method, got %s", resp.CompressionMethod)
	}
	if resp.TokenStats.Compressed > resp.TokenStats.Original {
		t.Errorf("compression grew the context: %+v", resp.TokenStats)
	}
}
