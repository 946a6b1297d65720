package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Config configures an OpenRouterService.
type Config struct {
	APIKey  string
	BaseURL string
	// Models maps the selectable model names to upstream model identifiers.
	Models  map[core.ModelID]string
	Timeout time.Duration
}

// OpenRouterService implements chat completions against OpenRouter or any
// OpenAI-compatible endpoint.
type OpenRouterService struct {
	apiKey     string
	baseURL    string
	models     map[core.ModelID]string
	timeout    time.Duration
	httpClient *http.Client
}

// OpenRouterError represents an error response from the OpenRouter API.
type OpenRouterError struct {
	Error struct {
		Message  string      `json:"message"`
		Code     interface{} `json:"code"`
		Metadata struct {
			Raw          string `json:"raw"`
			ProviderName string `json:"provider_name"`
		} `json:"metadata"`
	} `json:"error"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		FinishReason string  `json:"finish_reason"`
		Message      Message `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// NewOpenRouterService creates a new instance of OpenRouterService.
func NewOpenRouterService(cfg Config) *OpenRouterService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	models := make(map[core.ModelID]string, len(cfg.Models))
	for k, v := range cfg.Models {
		models[k] = v
	}
	return &OpenRouterService{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		models:     models,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

// UpstreamModel returns the provider identifier configured for id.
func (s *OpenRouterService) UpstreamModel(id core.ModelID) (string, bool) {
	m, ok := s.models[id]
	return m, ok
}

// ChatCompletion sends a chat completion request. Failures carry
// core.ErrModelUnavailable, or core.ErrGenerationTimeout when the deadline passes.
func (s *OpenRouterService) ChatCompletion(ctx context.Context, req CompletionRequest) (*ChatResponse, error) {
	const op = "chat completion"

	upstream, ok := s.models[req.Model]
	if !ok || upstream == "" {
		return nil, core.NewError(op, core.ErrModelUnavailable, fmt.Errorf("no upstream model configured for %q", req.Model))
	}

	reqBody := chatRequest{
		Model:       upstream,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		logger.LLMError("Failed to marshal LLM request: %v", err)
		return nil, core.NewError(op, core.ErrModelUnavailable, fmt.Errorf("failed to marshal request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	logger.LLMInfo("Sending request to LLM '%s' with %d messages and %d tools.", upstream, len(req.Messages), len(req.Tools))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, core.NewError(op, core.ErrModelUnavailable, fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		logger.LLMError("Failed to send HTTP request to LLM: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.NewError(op, core.ErrGenerationTimeout, err)
		}
		return nil, core.NewError(op, core.ErrModelUnavailable, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.LLMError("Failed to read LLM response body: %v", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, core.NewError(op, core.ErrGenerationTimeout, err)
		}
		return nil, core.NewError(op, core.ErrModelUnavailable, fmt.Errorf("failed to read response body: %w", err))
	}

	// Check for error in response body regardless of status code
	var orErr OpenRouterError
	if err := json.Unmarshal(body, &orErr); err == nil && orErr.Error.Message != "" {
		errMsg := fmt.Sprintf("OpenRouter API error: %s (status %d)", orErr.Error.Message, resp.StatusCode)
		if orErr.Error.Metadata.ProviderName != "" {
			errMsg = fmt.Sprintf("OpenRouter API error (%s): %s", orErr.Error.Metadata.ProviderName, orErr.Error.Message)
			if orErr.Error.Metadata.Raw != "" {
				errMsg += fmt.Sprintf(" - Raw: %s", orErr.Error.Metadata.Raw)
			}
		}
		logger.LLMError("%s", errMsg)
		return nil, core.NewError(op, core.ErrModelUnavailable, errors.New(errMsg))
	}

	if resp.StatusCode != http.StatusOK {
		errMsg := fmt.Sprintf("OpenRouter API HTTP error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
		logger.LLMError("%s", errMsg)
		if resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout {
			return nil, core.NewError(op, core.ErrGenerationTimeout, errors.New(errMsg))
		}
		return nil, core.NewError(op, core.ErrModelUnavailable, errors.New(errMsg))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logger.LLMError("Failed to decode LLM success response: %v", err)
		return nil, core.NewError(op, core.ErrModelUnavailable, fmt.Errorf("failed to decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		logger.LLMError("OpenRouter API returned no choices in response.")
		return nil, core.NewError(op, core.ErrModelUnavailable, errors.New("OpenRouter API returned no choices"))
	}

	choice := parsed.Choices[0]
	if parsed.Usage.TotalTokens > 0 {
		logger.LLMInfo("LLM Usage - Prompt: %d, Completion: %d, Total: %d tokens. Finish Reason: %s",
			parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, parsed.Usage.TotalTokens, choice.FinishReason)
	} else {
		logger.LLMInfo("LLM call completed. Finish Reason: %s (Usage data unavailable)", choice.FinishReason)
	}
	if logger.IsDebugEnabled() {
		toolCallInfo := ""
		if len(choice.Message.ToolCalls) > 0 {
			toolCallInfo = fmt.Sprintf(" (ToolCalls: %d)", len(choice.Message.ToolCalls))
		}
		logger.LLMDebug("LLM response: \"%s\"%s", truncate(choice.Message.Content, 80), toolCallInfo)
	}

	return &ChatResponse{
		Message:      choice.Message,
		FinishReason: choice.FinishReason,
		UpstreamID:   parsed.ID,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
