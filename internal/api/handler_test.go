package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"legalrag/internal/adapter/embedding"
	"legalrag/internal/adapter/memstore"
	"legalrag/internal/domain"
	"legalrag/internal/logging"
	"legalrag/internal/usecase"
)

type call struct {
	method string
	args   []string
	opts   usecase.QueryOptions
}

type fakeEngine struct {
	calls []call
	err   error
}

func (e *fakeEngine) answer(question string) (*domain.RAGResponse, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &domain.RAGResponse{Query: question, Answer: "answer", Sources: []domain.RetrievedMatch{}}, nil
}

func (e *fakeEngine) Query(ctx context.Context, question string, opts usecase.QueryOptions) (*domain.RAGResponse, error) {
	e.calls = append(e.calls, call{"query", []string{question}, opts})
	return e.answer(question)
}

func (e *fakeEngine) AnalyzeCase(ctx context.Context, caseName string) (*domain.RAGResponse, error) {
	e.calls = append(e.calls, call{method: "analyze", args: []string{caseName}})
	return e.answer(caseName)
}

func (e *fakeEngine) CompareCases(ctx context.Context, caseA, caseB string) (*domain.RAGResponse, error) {
	e.calls = append(e.calls, call{method: "compare", args: []string{caseA, caseB}})
	return e.answer(caseA)
}

func (e *fakeEngine) FindPrecedents(ctx context.Context, legalIssue string) (*domain.RAGResponse, error) {
	e.calls = append(e.calls, call{method: "precedents", args: []string{legalIssue}})
	return e.answer(legalIssue)
}

type fakeIngester struct {
	docs []domain.Document
}

func (i *fakeIngester) IngestDocuments(ctx context.Context, docs []domain.Document) (*domain.IngestResult, error) {
	i.docs = append(i.docs, docs...)
	return &domain.IngestResult{Documents: len(docs), Chunks: len(docs), Stored: len(docs)}, nil
}

func setup(t *testing.T) (*gin.Engine, *fakeEngine, *fakeIngester) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := &fakeEngine{}
	ingester := &fakeIngester{}
	store := memstore.NewMemoryStore("legal_documents", embedding.NewHashEmbedder(32))
	h := NewHandler(engine, ingester, store, "extractive", logging.Discard())
	return NewRouter(h), engine, ingester
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _, _ := setup(t)

	w := do(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"compression":"extractive"`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestQuery(t *testing.T) {
	r, engine, _ := setup(t)

	w := do(r, http.MethodPost, "/api/query", `{"question":"What was held?","filter":{"court":"Supreme Court"},"include_sources":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp domain.RAGResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "answer" || resp.Query != "What was held?" {
		t.Errorf("unexpected response %+v", resp)
	}

	got := engine.calls[0]
	if got.opts.Filter[domain.KeyCourt] != "Supreme Court" || !got.opts.ExcludeSources {
		t.Errorf("unexpected options %+v", got.opts)
	}

	do(r, http.MethodPost, "/api/query", `{"question":"q"}`)
	if engine.calls[1].opts.ExcludeSources {
		t.Error("sources must be included by default")
	}
}

func TestQuery_BadRequest(t *testing.T) {
	r, engine, _ := setup(t)

	for _, body := range []string{`{}`, `not json`, `{"question":""}`} {
		w := do(r, http.MethodPost, "/api/query", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, w.Code)
		}
	}
	if len(engine.calls) != 0 {
		t.Errorf("engine must not be called, got %d calls", len(engine.calls))
	}
}

func TestQuery_Failure(t *testing.T) {
	r, engine, _ := setup(t)
	engine.err = errors.New("query failed: generate: missing credentials")

	w := do(r, http.MethodPost, "/api/query", `{"question":"q"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != engine.err.Error() {
		t.Errorf("unexpected error body %v", body)
	}
}

func TestTemplates(t *testing.T) {
	r, engine, _ := setup(t)

	do(r, http.MethodPost, "/api/analyze-case", `{"case_name":"Brown v. Board"}`)
	do(r, http.MethodPost, "/api/compare-cases", `{"case_a":"Plessy v. Ferguson","case_b":"Brown v. Board"}`)
	do(r, http.MethodPost, "/api/precedents", `{"legal_issue":"qualified immunity"}`)

	want := []string{"analyze", "compare", "precedents"}
	if len(engine.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(engine.calls))
	}
	for i, m := range want {
		if engine.calls[i].method != m {
			t.Errorf("call %d: expected %s, got %s", i, m, engine.calls[i].method)
		}
	}
	if engine.calls[1].args[1] != "Brown v. Board" {
		t.Errorf("unexpected compare args %v", engine.calls[1].args)
	}

	if w := do(r, http.MethodPost, "/api/compare-cases", `{"case_a":"only one"}`); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing case_b, got %d", w.Code)
	}
}

func TestIngestAndStats(t *testing.T) {
	r, _, ingester := setup(t)

	w := do(r, http.MethodPost, "/api/ingest", `{"documents":[{"id":"brown","content":"Separate is unequal.","metadata":{"filename":"brown.txt"}}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(ingester.docs) != 1 || ingester.docs[0].Metadata.Filename != "brown.txt" {
		t.Errorf("unexpected ingested docs %+v", ingester.docs)
	}

	w = do(r, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var stats domain.StoreStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Name != "legal_documents" || stats.Backend != "memory" {
		t.Errorf("unexpected stats %+v", stats)
	}
}
