package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"legalrag/internal/domain"
	"legalrag/internal/logging"
	"legalrag/internal/port"
)

// Ingestion stages reported to a Progress callback.
const (
	StageParse = "parse"
	StageStore = "store"
)

// Progress is called after each unit of work of a stage.
type Progress func(stage string, done, total int)

// FileLister lists the document files under a root directory.
type FileLister interface {
	Walk(root string) ([]string, error)
}

// IngestUseCase parses, chunks and stores documents.
type IngestUseCase struct {
	parser    port.DocumentParser
	lister    FileLister
	chunker   port.Chunker
	store     port.Store
	batchSize int
	logger    *slog.Logger
}

// NewIngestUseCase creates an ingest use case. Chunks are added to the
// store batchSize at a time.
func NewIngestUseCase(parser port.DocumentParser, lister FileLister, chunker port.Chunker, store port.Store, batchSize int, logger *slog.Logger) *IngestUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IngestUseCase{
		parser:    parser,
		lister:    lister,
		chunker:   chunker,
		store:     store,
		batchSize: batchSize,
		logger:    logging.OrDefault(logger),
	}
}

// IngestDir ingests every matching file under root. A file that cannot
// be parsed or chunked is recorded in the result and skipped.
func (u *IngestUseCase) IngestDir(ctx context.Context, root string, progress Progress) (*domain.IngestResult, error) {
	files, err := u.lister.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	return u.IngestFiles(ctx, files, progress)
}

// IngestFiles ingests the given files.
func (u *IngestUseCase) IngestFiles(ctx context.Context, paths []string, progress Progress) (*domain.IngestResult, error) {
	result := &domain.IngestResult{}
	var chunks []domain.Chunk

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		docChunks, err := u.parseAndChunk(ctx, path)
		if err != nil {
			u.logger.Warn("skipping document", "path", path, "error", err)
			result.Errors = append(result.Errors, domain.FileError{Path: path, Error: err.Error()})
		} else {
			result.Documents++
			chunks = append(chunks, docChunks...)
		}
		report(progress, StageParse, i+1, len(paths))
	}

	result.Chunks = len(chunks)
	result.Stored = u.AddChunks(ctx, chunks, progress)
	return result, ctx.Err()
}

func (u *IngestUseCase) parseAndChunk(ctx context.Context, path string) ([]domain.Chunk, error) {
	doc, err := u.parser.ParseFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return u.chunker.Chunk(*doc)
}

// IngestDocuments chunks and stores already parsed documents.
func (u *IngestUseCase) IngestDocuments(ctx context.Context, docs []domain.Document) (*domain.IngestResult, error) {
	result := &domain.IngestResult{}
	var chunks []domain.Chunk

	for _, doc := range docs {
		docChunks, err := u.chunker.Chunk(doc)
		if err != nil {
			result.Errors = append(result.Errors, domain.FileError{Path: doc.Metadata.Filename, Error: err.Error()})
			continue
		}
		result.Documents++
		chunks = append(chunks, docChunks...)
	}

	result.Chunks = len(chunks)
	result.Stored = u.AddChunks(ctx, chunks, nil)
	return result, ctx.Err()
}

// AddChunks adds chunks to the store in batches and returns how many were
// stored. A failed batch is logged and skipped.
func (u *IngestUseCase) AddChunks(ctx context.Context, chunks []domain.Chunk, progress Progress) int {
	stored := 0
	batches := (len(chunks) + u.batchSize - 1) / u.batchSize

	for b := 0; b < batches; b++ {
		if ctx.Err() != nil {
			break
		}

		start := b * u.batchSize
		end := min(start+u.batchSize, len(chunks))

		n, err := u.store.Add(ctx, chunks[start:end])
		if err != nil {
			u.logger.Warn("failed to add batch", "batch", b, "chunks", end-start, "error", err)
		} else {
			stored += n
		}
		report(progress, StageStore, end, len(chunks))
	}

	return stored
}

func report(progress Progress, stage string, done, total int) {
	if progress != nil {
		progress(stage, done, total)
	}
}
