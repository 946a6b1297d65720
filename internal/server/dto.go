package server

import (
	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/format"
	"github.com/hunterwarburton/fva/internal/library"
)

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question    string       `json:"question"`
	Model       string       `json:"model"`
	K           int          `json:"k,omitempty"`
	ShowSources bool         `json:"show_sources"`
	ShowAudio   bool         `json:"show_audio"`
	History     core.History `json:"history,omitempty"`
}

// AskResponse is the reply to POST /api/ask. Audio is base64 in JSON.
type AskResponse struct {
	Answer    string          `json:"answer"`
	Sources   []format.Source `json:"sources,omitempty"`
	Model     core.ModelID    `json:"model"`
	ElapsedMs int64           `json:"elapsed_ms"`
	Warnings  []string        `json:"warnings,omitempty"`
	Audio     []byte          `json:"audio,omitempty"`
	AudioMIME string          `json:"audio_mime,omitempty"`
	History   core.History    `json:"history"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string       `json:"message"`
	Model   string       `json:"model,omitempty"`
	History core.History `json:"history,omitempty"`
}

// ChatResponse is the reply to POST /api/chat.
type ChatResponse struct {
	Reply     string       `json:"reply"`
	History   core.History `json:"history"`
	ToolCalls int          `json:"tool_calls"`
}

// LibraryDocument is a catalog entry with its index status. Indexed is nil
// when the index could not be asked.
type LibraryDocument struct {
	library.Document
	Indexed *bool `json:"indexed,omitempty"`
}

// LibraryResponse is the reply to GET /api/library.
type LibraryResponse struct {
	Documents []LibraryDocument `json:"documents"`
	Error     string            `json:"error,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
