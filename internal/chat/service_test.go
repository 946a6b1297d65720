package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/llm"
)

// scriptedCompleter returns its responses in order and records each request.
type scriptedCompleter struct {
	responses []llm.Message
	requests  []llm.CompletionRequest
}

func (s *scriptedCompleter) ChatCompletion(ctx context.Context, req llm.CompletionRequest) (*llm.ChatResponse, error) {
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return &llm.ChatResponse{Message: s.responses[i]}, nil
}

type recordingTools struct {
	calls []string
	err   error
}

func (r *recordingTools) Specs() []llm.Tool {
	return []llm.Tool{{Type: "function", Function: llm.FunctionSchema{Name: "web_search"}}}
}

func (r *recordingTools) ExecuteToolCall(ctx context.Context, userID int64, call llm.ToolCall) (string, error) {
	r.calls = append(r.calls, call.Function.Arguments)
	if r.err != nil {
		return "", r.err
	}
	return `{"results":[{"title":"BC Wildfire Service"}]}`, nil
}

func searchCall(args string) llm.Message {
	return llm.Message{Role: "assistant", ToolCalls: []llm.ToolCall{{ID: "c1", Type: "function", Function: llm.FunctionDetails{Name: "web_search", Arguments: args}}}}
}

func TestReplyRunsToolsThenAnswers(t *testing.T) {
	c := &scriptedCompleter{responses: []llm.Message{
		searchCall(`{"query":"wildfire bans"}`),
		{Role: "assistant", Content: "There is a campfire ban in the Kamloops fire centre."},
	}}
	tools := &recordingTools{}
	s := NewService(c, tools)

	history := core.History{{Role: core.RoleAssistant, Content: llm.ChatGreeting}}
	reply, err := s.Reply(context.Background(), 0, history, "Any fire bans?", "")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if reply.Text != "There is a campfire ban in the Kamloops fire centre." || reply.ToolCalls != 1 {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(tools.calls) != 1 || tools.calls[0] != `{"query":"wildfire bans"}` {
		t.Fatalf("unexpected tool calls %v", tools.calls)
	}

	second := c.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != "tool" || last.ToolCallID != "c1" {
		t.Fatalf("tool result not passed back to the model: %+v", last)
	}
	if len(history) != 1 || len(reply.History) != 3 {
		t.Fatalf("history must be extended on a copy: in=%d out=%d", len(history), len(reply.History))
	}
	if c.requests[0].Model != core.DefaultModel {
		t.Fatalf("expected default model, got %s", c.requests[0].Model)
	}
}

func TestReplyStopsAfterMaxRounds(t *testing.T) {
	c := &scriptedCompleter{responses: []llm.Message{searchCall(`{"query":"loop"}`)}}
	tools := &recordingTools{}

	reply, err := NewService(c, tools).Reply(context.Background(), 0, nil, "loop forever", core.ModelGPT35)
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if len(c.requests) != maxToolRounds {
		t.Fatalf("expected %d model calls, got %d", maxToolRounds, len(c.requests))
	}
	if len(tools.calls) != maxToolRounds-1 {
		t.Fatalf("expected %d tool calls, got %d", maxToolRounds-1, len(tools.calls))
	}
	if reply.Text == "" {
		t.Fatalf("expected a fallback reply")
	}
}

func TestReplyToolFailureIsReportedToModel(t *testing.T) {
	c := &scriptedCompleter{responses: []llm.Message{
		searchCall(`{"query":"q"}`),
		{Role: "assistant", Content: "Search is unavailable right now."},
	}}
	_, err := NewService(c, &recordingTools{err: errors.New("timeout")}).Reply(context.Background(), 0, nil, "q", "")
	if err != nil {
		t.Fatalf("tool failure must not fail the turn: %v", err)
	}
	msgs := c.requests[1].Messages
	if msgs[len(msgs)-1].Content != "Error executing tool web_search: timeout" {
		t.Fatalf("unexpected tool message %q", msgs[len(msgs)-1].Content)
	}
}

func TestReplyValidation(t *testing.T) {
	c := &scriptedCompleter{responses: []llm.Message{{Content: "hi"}}}
	s := NewService(c, nil)

	if _, err := s.Reply(context.Background(), 0, nil, "   ", ""); !errors.Is(err, core.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := s.Reply(context.Background(), 0, nil, "hi", "llama"); !errors.Is(err, core.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if len(c.requests) != 0 {
		t.Fatalf("invalid input must not reach the model")
	}
}
