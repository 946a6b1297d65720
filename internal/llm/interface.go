package llm

import (
	"context"

	"github.com/hunterwarburton/fva/internal/core"
)

// Message represents a chat message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall represents a function call from the model.
type ToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function FunctionDetails `json:"function"`
}

// FunctionDetails contains details about a function call.
type FunctionDetails struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool represents a function tool that can be used by the model.
type Tool struct {
	Type     string         `json:"type"`
	Function FunctionSchema `json:"function"`
}

// FunctionSchema represents the schema for a function tool.
type FunctionSchema struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
}

// CompletionRequest is one chat completion call. A nil Temperature leaves the
// provider default in place.
type CompletionRequest struct {
	Model       core.ModelID
	Messages    []Message
	Tools       []Tool
	Temperature *float64
	MaxTokens   int
}

// ChatResponse represents a response from the chat model.
type ChatResponse struct {
	Message      Message
	FinishReason string
	UpstreamID   string
}

// Completer is implemented by chat completion backends.
type Completer interface {
	ChatCompletion(ctx context.Context, req CompletionRequest) (*ChatResponse, error)
}

// Temperature returns a pointer for CompletionRequest.Temperature.
func Temperature(t float64) *float64 { return &t }
