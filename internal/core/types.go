package core

import "time"

// Query holds a user's question before and after normalization.
type Query struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// EmbeddingVector is the dense representation of a text span.
// Its length is fixed for a given embedding model.
type EmbeddingVector []float32

// DocumentChunk is a passage retrieved from the vector index.
type DocumentChunk struct {
	ID       string                 `json:"id"`
	SourceID string                 `json:"source_id"`
	Title    string                 `json:"title,omitempty"`
	Text     string                 `json:"text"`
	Page     int                    `json:"page,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Score    float32                `json:"score"`
}

// RetrievalResult is the ranked set of chunks for one query.
// Chunks are ordered by non-increasing Score and never exceed K.
type RetrievalResult struct {
	Chunks []DocumentChunk `json:"chunks"`
	K      int             `json:"k"`
}

// Answer is the synthesized response to a query.
type Answer struct {
	Text     string          `json:"text"`
	Cited    []DocumentChunk `json:"cited"`
	Model    ModelID         `json:"model"`
	Elapsed  time.Duration   `json:"elapsed"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is a conversation owned by the caller. Services receive it and
// return an extended copy; they never keep it.
type History []Message

// Append returns a copy of h with msgs added, leaving h untouched.
func (h History) Append(msgs ...Message) History {
	out := make(History, 0, len(h)+len(msgs))
	out = append(out, h...)
	return append(out, msgs...)
}
