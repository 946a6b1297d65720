package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
)

func newTestService(url string, timeout time.Duration) *OpenRouterService {
	return NewOpenRouterService(Config{
		APIKey:  "key",
		BaseURL: url,
		Models: map[core.ModelID]string{
			core.ModelGPT4:  "openai/gpt-4",
			core.ModelGPT35: "openai/gpt-3.5-turbo",
		},
		Timeout: timeout,
	})
}

func TestChatCompletion(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"id":"gen-1","choices":[{"finish_reason":"stop","message":{"role":"assistant","content":"The review sets the cut."}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	s := newTestService(srv.URL, time.Second)
	resp, err := s.ChatCompletion(context.Background(), CompletionRequest{
		Model:       core.ModelGPT4,
		Messages:    []Message{{Role: "user", Content: "hi"}},
		Temperature: Temperature(0),
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if resp.Message.Content != "The review sets the cut." || resp.FinishReason != "stop" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got["model"] != "openai/gpt-4" {
		t.Fatalf("expected upstream model id, got %v", got["model"])
	}
	temp, ok := got["temperature"]
	if !ok || temp.(float64) != 0 {
		t.Fatalf("expected explicit temperature 0, got %v (present=%v)", temp, ok)
	}
}

func TestChatCompletionUnknownModelMakesNoCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	s := newTestService(srv.URL, time.Second)
	_, err := s.ChatCompletion(context.Background(), CompletionRequest{Model: "claude"})
	if !errors.Is(err, core.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no upstream call, got %d", calls)
	}
}

func TestChatCompletionErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "bad credential", status: http.StatusUnauthorized, body: `{"error":{"message":"No auth credentials found","code":401}}`},
		{name: "unknown upstream model", status: http.StatusNotFound, body: `not found`},
		{name: "provider error in 200", status: http.StatusOK, body: `{"error":{"message":"overloaded","code":502,"metadata":{"provider_name":"OpenAI"}}}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestService(srv.URL, time.Second).ChatCompletion(context.Background(), CompletionRequest{Model: core.ModelGPT35})
			if !errors.Is(err, core.ErrModelUnavailable) {
				t.Fatalf("expected ErrModelUnavailable, got %v", err)
			}
		})
	}
}

func TestChatCompletionTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := newTestService(srv.URL, 50*time.Millisecond).ChatCompletion(context.Background(), CompletionRequest{Model: core.ModelGPT4})
	if !errors.Is(err, core.ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
}

func TestQAMessages(t *testing.T) {
	history := core.History{
		{Role: core.RoleUser, Content: "earlier"},
		{Role: core.RoleTool, Content: "{}"},
		{Role: core.RoleAssistant, Content: "reply"},
	}
	msgs := QAMessages("ctx block", "What is it?", history)
	if len(msgs) != 4 {
		t.Fatalf("expected system, 2 history turns and question, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || !strings.HasSuffix(msgs[0].Content, "ctx block") {
		t.Fatalf("unexpected system message %+v", msgs[0])
	}
	if msgs[3].Role != "user" || msgs[3].Content != "What is it?" {
		t.Fatalf("unexpected final message %+v", msgs[3])
	}
}
