// Package api exposes the query engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"legalrag/internal/domain"
	"legalrag/internal/logging"
	"legalrag/internal/port"
	"legalrag/internal/usecase"
)

// QueryEngine answers questions and runs the query templates.
type QueryEngine interface {
	Query(ctx context.Context, question string, opts usecase.QueryOptions) (*domain.RAGResponse, error)
	AnalyzeCase(ctx context.Context, caseName string) (*domain.RAGResponse, error)
	CompareCases(ctx context.Context, caseA, caseB string) (*domain.RAGResponse, error)
	FindPrecedents(ctx context.Context, legalIssue string) (*domain.RAGResponse, error)
}

// DocumentIngester stores already parsed documents.
type DocumentIngester interface {
	IngestDocuments(ctx context.Context, docs []domain.Document) (*domain.IngestResult, error)
}

// Handler handles HTTP requests for the query API.
type Handler struct {
	engine      QueryEngine
	ingester    DocumentIngester
	store       port.Store
	compression string
	logger      *slog.Logger
}

// NewHandler creates a handler. compression names the active strategy
// reported by the health check.
func NewHandler(engine QueryEngine, ingester DocumentIngester, store port.Store, compression string, logger *slog.Logger) *Handler {
	return &Handler{
		engine:      engine,
		ingester:    ingester,
		store:       store,
		compression: compression,
		logger:      logging.OrDefault(logger),
	}
}

// QueryRequest represents the request body for POST /api/query.
type QueryRequest struct {
	Question string        `json:"question" binding:"required"`
	Filter   domain.Filter `json:"filter"`
	TopK     int           `json:"top_k"`
	// IncludeSources defaults to true when omitted.
	IncludeSources *bool `json:"include_sources"`
}

type AnalyzeCaseRequest struct {
	CaseName string `json:"case_name" binding:"required"`
}

type CompareCasesRequest struct {
	CaseA string `json:"case_a" binding:"required"`
	CaseB string `json:"case_b" binding:"required"`
}

type PrecedentsRequest struct {
	LegalIssue string `json:"legal_issue" binding:"required"`
}

type IngestRequest struct {
	Documents []domain.Document `json:"documents" binding:"required"`
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"compression": h.compression,
	})
}

// Query handles POST /api/query
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if !h.bind(c, &req) {
		return
	}

	opts := usecase.QueryOptions{
		Filter:         req.Filter,
		TopK:           req.TopK,
		ExcludeSources: req.IncludeSources != nil && !*req.IncludeSources,
	}
	resp, err := h.engine.Query(c.Request.Context(), req.Question, opts)
	h.respond(c, resp, err)
}

// AnalyzeCase handles POST /api/analyze-case
func (h *Handler) AnalyzeCase(c *gin.Context) {
	var req AnalyzeCaseRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.engine.AnalyzeCase(c.Request.Context(), req.CaseName)
	h.respond(c, resp, err)
}

// CompareCases handles POST /api/compare-cases
func (h *Handler) CompareCases(c *gin.Context) {
	var req CompareCasesRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.engine.CompareCases(c.Request.Context(), req.CaseA, req.CaseB)
	h.respond(c, resp, err)
}

// Precedents handles POST /api/precedents
func (h *Handler) Precedents(c *gin.Context) {
	var req PrecedentsRequest
	if !h.bind(c, &req) {
		return
	}
	resp, err := h.engine.FindPrecedents(c.Request.Context(), req.LegalIssue)
	h.respond(c, resp, err)
}

// Ingest handles POST /api/ingest
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if !h.bind(c, &req) {
		return
	}
	result, err := h.ingester.IngestDocuments(c.Request.Context(), req.Documents)
	h.respond(c, result, err)
}

// Stats handles GET /api/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	h.respond(c, stats, err)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) respond(c *gin.Context, body any, err error) {
	if err != nil {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, body)
}
