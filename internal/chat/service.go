// Package chat runs the web-search chatbot: a model that may call tools
// before it answers.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/llm"
	"github.com/hunterwarburton/fva/internal/logger"
)

const maxToolRounds = 5 // Maximum number of tool call rounds

// ToolExecutor exposes tools to the model and runs the calls it makes.
type ToolExecutor interface {
	Specs() []llm.Tool
	ExecuteToolCall(ctx context.Context, userID int64, call llm.ToolCall) (string, error)
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Text      string       `json:"text"`
	History   core.History `json:"history"`
	ToolCalls int          `json:"tool_calls"`
}

// Service answers chat turns. It keeps no conversation state; callers pass
// the history in and get the extended history back.
type Service struct {
	completer llm.Completer
	tools     ToolExecutor
	now       func() time.Time
}

// NewService creates a chat service. tools may be nil for a plain chatbot.
func NewService(c llm.Completer, tools ToolExecutor) *Service {
	return &Service{completer: c, tools: tools, now: time.Now}
}

// Reply answers message in the context of history.
func (s *Service) Reply(ctx context.Context, userID int64, history core.History, message string, model core.ModelID) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, core.NewError("chat", core.ErrEmptyQuery, nil)
	}
	model, err := core.ParseModelID(string(model))
	if err != nil {
		return nil, err
	}

	session := make([]llm.Message, 0, len(history)+2)
	session = append(session, llm.Message{Role: string(core.RoleSystem), Content: llm.SearchSystemPrompt(s.now())})
	session = append(session, llm.FromHistory(history)...)
	session = append(session, llm.Message{Role: string(core.RoleUser), Content: message})

	var specs []llm.Tool
	if s.tools != nil {
		specs = s.tools.Specs()
	}

	toolCalls := 0
	var response *llm.ChatResponse
	for round := 0; round < maxToolRounds; round++ {
		logger.LLMDebug("User[%d]: Initiating LLM call (Round %d). History length: %d", userID, round+1, len(session))

		response, err = s.completer.ChatCompletion(ctx, llm.CompletionRequest{
			Model:    model,
			Messages: session,
			Tools:    specs,
		})
		if err != nil {
			logger.LLMError("User[%d]: Error from LLM (Round %d): %v", userID, round+1, err)
			return nil, err
		}

		if len(response.Message.ToolCalls) == 0 || s.tools == nil {
			break
		}
		if round == maxToolRounds-1 {
			logger.LLMWarn("User[%d]: Maximum tool call rounds (%d) reached.", userID, maxToolRounds)
			break
		}

		logger.LLMInfo("User[%d]: LLM requested %d tool calls (Round %d).", userID, len(response.Message.ToolCalls), round+1)
		session = append(session, response.Message)

		for i, call := range response.Message.ToolCalls {
			toolCalls++
			logger.ToolInfo("User[%d]: Executing tool call %d/%d: %s (Round %d)", userID, i+1, len(response.Message.ToolCalls), call.Function.Name, round+1)
			content, err := s.tools.ExecuteToolCall(ctx, userID, call)
			if err != nil {
				// The model sees the failure and can answer without the tool.
				content = fmt.Sprintf("Error executing tool %s: %v", call.Function.Name, err)
			}
			session = append(session, llm.Message{
				Role:       string(core.RoleTool),
				Content:    content,
				ToolCallID: call.ID,
			})
		}
	}

	text := strings.TrimSpace(response.Message.Content)
	if text == "" {
		text = "Sorry, I couldn't find an answer to that."
	}

	return &Reply{
		Text: text,
		History: history.Append(
			core.Message{Role: core.RoleUser, Content: message},
			core.Message{Role: core.RoleAssistant, Content: text},
		),
		ToolCalls: toolCalls,
	}, nil
}
