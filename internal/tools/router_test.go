package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/llm"
	"github.com/hunterwarburton/fva/internal/websearch"
)

type stubSearcher struct{ query string }

func (s *stubSearcher) Search(ctx context.Context, query string, n int) ([]websearch.Result, error) {
	s.query = query
	return []websearch.Result{{Title: "BC Timber Sales", URL: "https://www2.gov.bc.ca/bcts", Snippet: "Timber auctions"}}, nil
}

type stubRetriever struct{ k int }

func (s *stubRetriever) Retrieve(ctx context.Context, query string, k int, namespace string) (core.RetrievalResult, error) {
	s.k = k
	return core.RetrievalResult{Chunks: []core.DocumentChunk{{SourceID: "tsr.pdf", Text: "The review sets the cut."}}, K: 4}, nil
}

type denyAll struct{}

func (denyAll) IsToolAllowed(int64, string) bool { return false }

func call(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "1", Type: "function", Function: llm.FunctionDetails{Name: name, Arguments: args}}
}

func TestExecuteToolCall(t *testing.T) {
	web := &stubSearcher{}
	docs := &stubRetriever{}
	r := NewToolRouter(nil, web, docs)

	if got := len(r.Specs()); got != 2 {
		t.Fatalf("expected 2 tool specs, got %d", got)
	}

	out, err := r.ExecuteToolCall(context.Background(), 0, call(WebSearch, `{"query":"bc timber sales"}`))
	if err != nil {
		t.Fatalf("web_search: %v", err)
	}
	if web.query != "bc timber sales" || !strings.Contains(out, "https://www2.gov.bc.ca/bcts") {
		t.Fatalf("unexpected web_search result %s", out)
	}

	out, err = r.ExecuteToolCall(context.Background(), 0, call(SearchDocuments, `{"query":"cut","k":2}`))
	if err != nil {
		t.Fatalf("search_documents: %v", err)
	}
	if docs.k != 2 || !strings.Contains(out, "tsr.pdf") {
		t.Fatalf("unexpected search_documents result %s", out)
	}
}

func TestExecuteToolCallErrors(t *testing.T) {
	tests := []struct {
		name   string
		router *ToolRouter
		call   llm.ToolCall
	}{
		{name: "unknown tool", router: NewToolRouter(nil, &stubSearcher{}, nil), call: call("generate_image", `{}`)},
		{name: "bad arguments", router: NewToolRouter(nil, &stubSearcher{}, nil), call: call(WebSearch, `not json`)},
		{name: "missing query", router: NewToolRouter(nil, &stubSearcher{}, nil), call: call(WebSearch, `{}`)},
		{name: "tool not configured", router: NewToolRouter(nil, nil, nil), call: call(SearchDocuments, `{"query":"q"}`)},
		{name: "policy denies", router: NewToolRouter(denyAll{}, &stubSearcher{}, nil), call: call(WebSearch, `{"query":"q"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.router.ExecuteToolCall(context.Background(), 7, tt.call); err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}
