package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"legalrag/internal/port"
)

func TestOpenAIClient_MissingCredentialsAtFirstUse(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_LLM_KEY", "")

	// Construction must succeed without a key.
	c := NewOpenAIClient("LEGALRAG_TEST_LLM_KEY", "gpt-4-turbo-preview", "", 0)

	_, err := c.Generate(context.Background(), port.GenerationRequest{UserMessage: "hi"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestOpenAIClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			return
		}
		if req.Model != "gpt-test" || req.Temperature != 0.1 || req.MaxTokens != 2000 {
			t.Errorf("unexpected request %+v", req)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"The holding is X."}}]}`))
	}))
	defer srv.Close()

	t.Setenv("LEGALRAG_TEST_LLM_KEY", "secret")
	c := NewOpenAIClient("LEGALRAG_TEST_LLM_KEY", "default-model", srv.URL, time.Second)

	out, err := c.Generate(context.Background(), port.GenerationRequest{
		Model:         "gpt-test",
		SystemMessage: "You are a legal analyst.",
		UserMessage:   "What is the holding?",
		Temperature:   0.1,
		MaxTokens:     2000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "The holding is X." {
		t.Errorf("unexpected answer %q", out)
	}
}

func TestOpenAIClient_Unauthenticated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("expected no auth header, got %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("", "llama3", srv.URL, time.Second)
	out, err := c.Generate(context.Background(), port.GenerationRequest{UserMessage: "q"})
	if err != nil || out != "ok" {
		t.Errorf("unexpected result %q, %v", out, err)
	}
}

func TestOpenAIClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	t.Setenv("LEGALRAG_TEST_LLM_KEY", "secret")
	c := NewOpenAIClient("LEGALRAG_TEST_LLM_KEY", "m", srv.URL, time.Second)

	if _, err := c.Generate(context.Background(), port.GenerationRequest{UserMessage: "q"}); err == nil {
		t.Error("expected error for API error response")
	}
}

func TestGeminiClient_MissingCredentialsAtFirstUse(t *testing.T) {
	t.Setenv("LEGALRAG_TEST_GEMINI_KEY", "")

	c := NewGeminiClient("LEGALRAG_TEST_GEMINI_KEY", "")
	if c.ModelName() != "gemini-1.5-pro" {
		t.Errorf("expected default model, got %s", c.ModelName())
	}

	_, err := c.Generate(context.Background(), port.GenerationRequest{UserMessage: "hi"})
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("expected nil close error, got %v", err)
	}
}
