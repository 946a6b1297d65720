package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
)

func TestEmbedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Input != "timber supply" || req.Model != "m" {
			t.Errorf("unexpected request %+v", req)
		}
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3],"index":0}],"model":"m"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Model: "m", Dim: 3})
	vec, err := c.EmbedQuery(context.Background(), "timber supply")
	if err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if c.Dimension() != 3 {
		t.Fatalf("unexpected dimension %d", c.Dimension())
	}
}

func TestEmbedQueryFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "quota", status: http.StatusTooManyRequests, body: `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "wrong dimension", status: http.StatusOK, body: `{"data":[{"embedding":[0.1,0.2]}]}`},
		{name: "empty data", status: http.StatusOK, body: `{"data":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, Dim: 3})
			_, err := c.EmbedQuery(context.Background(), "q")
			if !errors.Is(err, core.ErrEmbeddingFailure) {
				t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
			}
			if calls != 1 {
				t.Fatalf("expected exactly one upstream call, got %d", calls)
			}
		})
	}
}

func TestEmbedQueryTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{BaseURL: srv.URL, Dim: 3, Timeout: 50 * time.Millisecond})
	_, err := c.EmbedQuery(context.Background(), "q")
	if !errors.Is(err, core.ErrEmbeddingFailure) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline wrapped as embedding failure, got %v", err)
	}
}
