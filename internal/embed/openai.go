package embed

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

// DefaultDim matches text-embedding-ada-002.
const DefaultDim = 1536

// Config configures an OpenAI-compatible embeddings client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Dim     int
	Timeout time.Duration
}

// Client calls the /embeddings endpoint of an OpenAI-compatible API.
// It does not retry: quota and rate-limit failures surface to the caller.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dim        int
	timeout    time.Duration
	httpClient *http.Client
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new embeddings client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-ada-002"
	}
	if cfg.Dim <= 0 {
		cfg.Dim = DefaultDim
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dim:        cfg.Dim,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}
}

// Dimension returns the length of every vector this client produces.
func (c *Client) Dimension() int { return c.dim }

// EmbedQuery embeds a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) (core.EmbeddingVector, error) {
	vec, err := c.embed(ctx, text)
	if err != nil {
		return nil, core.NewError("embed query", core.ErrEmbeddingFailure, err)
	}
	return vec, nil
}

func (c *Client) embed(ctx context.Context, text string) (core.EmbeddingVector, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	jsonData, err := json.Marshal(embeddingRequest{Input: text, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	logger.Debug("Embedding %d characters with model %s", len(text), c.model)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out embeddingResponse
	decodeErr := json.Unmarshal(body, &out)
	if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
		return nil, fmt.Errorf("embeddings API error (status %d, %s): %s", resp.StatusCode, out.Error.Type, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings API HTTP error (status %d): %s", resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}

	vec := out.Data[0].Embedding
	if len(vec) != c.dim {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), c.dim)
	}
	return core.EmbeddingVector(vec), nil
}
