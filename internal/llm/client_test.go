package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatComplete(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"the answer"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "", "")
	out, err := c.ChatComplete(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hello"},
	}, Options{})
	if err != nil {
		t.Fatalf("ChatComplete: %v", err)
	}
	if out != "the answer" {
		t.Errorf("expected %q, got %q", "the answer", out)
	}
	if gotReq.Model != DefaultChatModel {
		t.Errorf("expected default model, got %q", gotReq.Model)
	}
	if gotReq.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %v", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("unexpected messages %+v", gotReq.Messages)
	}
}

func TestChatCompleteNon2xxIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "", "")
	_, err := c.ChatComplete(context.Background(), []Message{{Role: "user", Content: "x"}}, Options{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", apiErr.StatusCode)
	}
}

func TestEmbedTexts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 2 {
			t.Errorf("expected 2 inputs, got %d", len(req.Input))
		}
		w.Write([]byte(`{"data":[{"embedding":[1,0]},{"embedding":[0,1]}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "", "")
	vecs, err := c.EmbedTexts(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors out of order: %v", vecs)
	}
}

func TestEmbedTextsEmptyInputNoCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "", "")
	vecs, err := c.EmbedTexts(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("expected empty result, got %v", vecs)
	}
	if called {
		t.Error("expected no network call for empty input")
	}
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"bare", `{"clauses":[]}`},
		{"fenced", "```json\n{\"clauses\":[]}\n```"},
		{"fenced no lang", "```\n{\"clauses\":[]}\n```"},
		{"padded", "  \n```json\n{\"clauses\":[]}\n```\n  "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v struct {
				Clauses []string `json:"clauses"`
			}
			if err := DecodeJSON(tc.raw, &v); err != nil {
				t.Errorf("DecodeJSON(%q): %v", tc.raw, err)
			}
		})
	}

	var v any
	if err := DecodeJSON("not json at all", &v); err == nil {
		t.Error("expected error for non-JSON input")
	}
}
