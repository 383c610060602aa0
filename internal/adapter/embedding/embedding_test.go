package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)

	vecs, err := e.Embed(context.Background(), []string{"summary judgment", "summary judgment"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs[0]) != 64 {
		t.Errorf("expected dimension 64, got %d", len(vecs[0]))
	}
	if cosine(vecs[0], vecs[1]) < 0.9999 {
		t.Error("expected identical texts to embed identically")
	}
}

func TestHashEmbedder_LexicalSimilarity(t *testing.T) {
	e := NewHashEmbedder(256)

	vecs, err := e.Embed(context.Background(), []string{
		"the court granted summary judgment for the defendant",
		"summary judgment granted to defendant",
		"maritime salvage rights of vessels",
	})
	if err != nil {
		t.Fatal(err)
	}

	near := cosine(vecs[0], vecs[1])
	far := cosine(vecs[0], vecs[2])
	if near <= far {
		t.Errorf("expected related texts closer: near=%f far=%f", near, far)
	}
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	e := NewHashEmbedder(16)

	vecs, err := e.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range vecs[0] {
		if v != 0 {
			t.Fatalf("expected zero vector for empty text, got %v", vecs[0])
		}
	}
}

func TestOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_EMBED_KEY", "")

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("LEGALRAG_TEST_EMBED_KEY", "text-embedding-3-small", srv.URL, 0, 0)
	if e.Dimension() != 1536 {
		t.Errorf("expected default dimension 1536, got %d", e.Dimension())
	}

	_, err := e.Embed(context.Background(), []string{"x"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no request without a key, got %d", calls)
	}

	// The key is read per call, so setting it later is enough.
	t.Setenv("LEGALRAG_TEST_EMBED_KEY", "secret")
	if _, err := e.Embed(context.Background(), []string{"x"}); errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected key to be picked up, got %v", err)
	}
}

func TestGeminiEmbedder_MissingKey(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_EMBED_KEY", "")

	e := NewGeminiEmbedder("LEGALRAG_TEST_EMBED_KEY", "", 0, 0)
	defer e.Close()
	if e.Dimension() != 768 || e.ModelName() != "text-embedding-004" {
		t.Errorf("unexpected defaults %d/%s", e.Dimension(), e.ModelName())
	}

	_, err := e.Embed(context.Background(), []string{"x"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}

		resp := embeddingResponse{}
		// Answer out of order to exercise index mapping.
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embeddingData{Index: i, Embedding: []float32{float32(len(req.Input[i])), 1}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	t.Setenv("LEGALRAG_TEST_EMBED_KEY", "secret")
	e := NewOpenAIEmbedder("LEGALRAG_TEST_EMBED_KEY", "text-embedding-3-small", srv.URL, 2, 2)

	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 batched calls, got %d", calls)
	}
	for i, want := range []float32{1, 2, 3} {
		if vecs[i][0] != want {
			t.Errorf("embedding %d: expected %f, got %f", i, want, vecs[i][0])
		}
	}
	if e.Dimension() != 2 || e.ModelName() != "text-embedding-3-small" {
		t.Errorf("unexpected dimension/model %d/%s", e.Dimension(), e.ModelName())
	}
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	t.Setenv("LEGALRAG_TEST_EMBED_KEY", "secret")
	e := NewOpenAIEmbedder("LEGALRAG_TEST_EMBED_KEY", "m", srv.URL, 2, 10)
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Error("expected error for non-200 response")
	}
}
