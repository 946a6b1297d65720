package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/llm"
	"github.com/hunterwarburton/fva/internal/logger"
	"github.com/hunterwarburton/fva/internal/rag"
	"github.com/hunterwarburton/fva/internal/websearch"
)

const (
	WebSearch       = "web_search"
	SearchDocuments = "search_documents"
)

// PolicyService defines the interface for checking tool permissions.
type PolicyService interface {
	IsToolAllowed(userID int64, toolName string) bool
}

// WebSearcher runs a web search.
type WebSearcher interface {
	Search(ctx context.Context, query string, n int) ([]websearch.Result, error)
}

// DocumentRetriever searches the forestry document index.
type DocumentRetriever interface {
	Retrieve(ctx context.Context, query string, k int, namespace string) (core.RetrievalResult, error)
}

// ToolRouter routes and executes tool calls.
type ToolRouter struct {
	policy    PolicyService
	web       WebSearcher
	retriever DocumentRetriever
}

// NewToolRouter creates a new ToolRouter. A nil policy allows every tool;
// a nil searcher or retriever leaves that tool out.
func NewToolRouter(policy PolicyService, web WebSearcher, retriever DocumentRetriever) *ToolRouter {
	return &ToolRouter{policy: policy, web: web, retriever: retriever}
}

// Specs describes the available tools to the model.
func (r *ToolRouter) Specs() []llm.Tool {
	var specs []llm.Tool
	if r.web != nil {
		specs = append(specs, llm.Tool{
			Type: "function",
			Function: llm.FunctionSchema{
				Name:        WebSearch,
				Description: "Search the web for current information. Returns titles, URLs and snippets.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query":       map[string]interface{}{"type": "string", "description": "The search query"},
						"max_results": map[string]interface{}{"type": "integer", "description": "Maximum number of results (default 5)"},
					},
					"required": []string{"query"},
				},
			},
		})
	}
	if r.retriever != nil {
		specs = append(specs, llm.Tool{
			Type: "function",
			Function: llm.FunctionSchema{
				Name:        SearchDocuments,
				Description: "Search the ministry's forestry document library for passages relevant to a question.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{"type": "string", "description": "What to look for"},
						"k":     map[string]interface{}{"type": "integer", "description": "Number of passages (default 4)"},
					},
					"required": []string{"query"},
				},
			},
		})
	}
	return specs
}

// ExecuteToolCall executes a tool call and returns the result as a string.
func (r *ToolRouter) ExecuteToolCall(ctx context.Context, userID int64, call llm.ToolCall) (string, error) {
	if r.policy != nil && !r.policy.IsToolAllowed(userID, call.Function.Name) {
		err := fmt.Errorf("user %d is not allowed to use tool %s", userID, call.Function.Name)
		logger.ToolError("Tool execution failed: %v", err)
		return "", err
	}

	logger.Debug("Executing tool '%s' for user %d...", call.Function.Name, userID)

	var result string
	var err error

	switch call.Function.Name {
	case WebSearch:
		if r.web == nil {
			err = fmt.Errorf("tool %s is not configured", WebSearch)
			break
		}
		var args struct {
			Query      string `json:"query"`
			MaxResults int    `json:"max_results"`
		}
		if err = json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return "", fmt.Errorf("failed to parse web_search arguments: %w", err)
		}
		if args.Query == "" {
			return "", fmt.Errorf("query is required for web_search")
		}
		var results []websearch.Result
		results, err = r.web.Search(ctx, args.Query, args.MaxResults)
		if err != nil {
			err = fmt.Errorf("failed to execute web_search: %w", err)
			break
		}
		result, err = formatWebResults(results)

	case SearchDocuments:
		if r.retriever == nil {
			err = fmt.Errorf("tool %s is not configured", SearchDocuments)
			break
		}
		var args struct {
			Query string `json:"query"`
			K     int    `json:"k"`
		}
		if err = json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return "", fmt.Errorf("failed to parse search_documents arguments: %w", err)
		}
		if args.Query == "" {
			return "", fmt.Errorf("query is required for search_documents")
		}
		var res core.RetrievalResult
		res, err = r.retriever.Retrieve(ctx, args.Query, args.K, "")
		if err != nil {
			err = fmt.Errorf("failed to execute search_documents: %w", err)
			break
		}
		result = rag.FormatChunksAsJSON(res.Chunks)

	default:
		err = fmt.Errorf("unknown tool: %s", call.Function.Name)
	}

	if err != nil {
		logger.ToolError("Tool '%s' execution failed for user %d: %v", call.Function.Name, userID, err)
		return "", err
	}

	resultText := result
	if len(resultText) > 100 {
		resultText = resultText[:100] + "..."
	}
	logger.Debug("Tool '%s' execution successful for user %d. Result: \"%s\"", call.Function.Name, userID, resultText)
	return result, nil
}

func formatWebResults(results []websearch.Result) (string, error) {
	if len(results) == 0 {
		return `{"results": [], "message": "No results found."}`, nil
	}
	data, err := json.Marshal(map[string]interface{}{"results": results})
	if err != nil {
		return "", fmt.Errorf("failed to encode web results: %w", err)
	}
	return string(data), nil
}
