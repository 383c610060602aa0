package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"legalrag/internal/adapter/analyzer"
	"legalrag/internal/adapter/compressor"
	"legalrag/internal/domain"
	"legalrag/internal/logging"
	"legalrag/internal/port"
)

// ErrQueryFailed wraps every failure while answering a query.
var ErrQueryFailed = errors.New("query failed")

// NoResultsAnswer is returned when retrieval finds nothing.
const NoResultsAnswer = "No relevant documents found for your query."

// SystemPrompt instructs the generation model how to answer.
const SystemPrompt = `You are an expert legal analyst assistant. Your role is to provide accurate, well-reasoned analysis of legal documents, case law, and statutes.

Guidelines:
1. Base your answers ONLY on the provided context
2. Cite specific cases, statutes, or document sections when possible
3. Acknowledge when information is incomplete or unclear
4. Use precise legal terminology
5. Structure complex answers with clear headings
6. Distinguish between holdings, dicta, and your analysis

If the context doesn't contain sufficient information to answer the question, clearly state that and explain what additional information would be needed.`

// QueryConfig holds the per-engine query settings.
type QueryConfig struct {
	TopK int
	// MaxContextTokens bounds the compressed context. Zero compresses at
	// the compressor's configured ratio.
	MaxContextTokens int
	Model            string
	Temperature      float64
	MaxTokens        int
}

// DefaultQueryConfig returns the default query settings.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopK:             10,
		MaxContextTokens: 8000,
		Temperature:      0.1,
		MaxTokens:        2000,
	}
}

// QueryOptions are per-call overrides.
type QueryOptions struct {
	Filter domain.Filter
	// TopK overrides QueryConfig.TopK when > 0.
	TopK int
	// ExcludeSources leaves RAGResponse.Sources empty.
	ExcludeSources bool
}

// QueryUseCase answers questions over the stored corpus: retrieve,
// assemble, compress, generate. It keeps no state between queries.
type QueryUseCase struct {
	store      port.Store
	compressor port.Compressor
	generator  port.Generator
	cfg        QueryConfig
	logger     *slog.Logger
}

// NewQueryUseCase creates a query use case. A nil compressor disables
// compression.
func NewQueryUseCase(store port.Store, comp port.Compressor, gen port.Generator, cfg QueryConfig, logger *slog.Logger) *QueryUseCase {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultQueryConfig().TopK
	}
	return &QueryUseCase{
		store:      store,
		compressor: comp,
		generator:  gen,
		cfg:        cfg,
		logger:     logging.OrDefault(logger),
	}
}

// Query answers question from the stored documents.
func (u *QueryUseCase) Query(ctx context.Context, question string, opts QueryOptions) (*domain.RAGResponse, error) {
	queryID := uuid.NewString()

	topK := u.cfg.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}

	matches, err := u.store.Search(ctx, question, topK, opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrQueryFailed, err)
	}

	if len(matches) == 0 {
		u.logger.Info("query answered", "query_id", queryID, "matches", 0)
		return &domain.RAGResponse{
			Query:   question,
			Answer:  NoResultsAnswer,
			Sources: []domain.RetrievedMatch{},
		}, nil
	}

	original := AssembleContext(matches)
	originalTokens := analyzer.EstimateTokens(original)

	contextText, compressedTokens := original, originalTokens
	method := "none"
	var citations []string
	if u.compressor != nil {
		result, err := u.compress(ctx, original, question)
		if err != nil {
			return nil, fmt.Errorf("%w: compress: %w", ErrQueryFailed, err)
		}
		contextText = result.CompressedText
		compressedTokens = result.CompressedTokens
		method = result.Method
		citations = result.PreservedCitations
		u.logger.Debug("context compressed", "query_id", queryID, "stats", compressor.FormatStats(result))
	}

	answer, err := u.generator.Generate(ctx, port.GenerationRequest{
		Model:         u.cfg.Model,
		SystemMessage: SystemPrompt,
		UserMessage:   UserMessage(question, contextText),
		Temperature:   u.cfg.Temperature,
		MaxTokens:     u.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %w", ErrQueryFailed, err)
	}

	sources := matches
	if opts.ExcludeSources {
		sources = []domain.RetrievedMatch{}
	}

	u.logger.Info("query answered",
		"query_id", queryID,
		"matches", len(matches),
		"original_tokens", originalTokens,
		"compressed_tokens", compressedTokens,
		"method", method,
	)

	return &domain.RAGResponse{
		Query:              question,
		Answer:             answer,
		Sources:            sources,
		CompressedContext:  contextText,
		TokenStats:         domain.NewTokenStats(originalTokens, compressedTokens),
		CompressionMethod:  method,
		PreservedCitations: citations,
	}, nil
}

func (u *QueryUseCase) compress(ctx context.Context, text, question string) (domain.CompressionResult, error) {
	if u.cfg.MaxContextTokens > 0 {
		return compressor.FitToBudget(ctx, u.compressor, text, question, u.cfg.MaxContextTokens)
	}
	return u.compressor.Compress(ctx, text, port.CompressOptions{
		Query:             question,
		PreserveCitations: true,
	})
}

// UserMessage embeds the question and context in the generation prompt.
func UserMessage(question, contextText string) string {
	return fmt.Sprintf(`Based on the following legal documents and context, please answer this question:

QUESTION: %s

CONTEXT:
%s

Please provide a comprehensive answer based on the context above. Cite specific sources when possible.`, question, contextText)
}
