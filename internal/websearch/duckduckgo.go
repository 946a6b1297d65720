// Package websearch queries the DuckDuckGo Instant Answer API.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hunterwarburton/fva/internal/logger"
)

const defaultBaseURL = "https://api.duckduckgo.com/"

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Client searches the web.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL uses the public API.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{baseURL: baseURL, timeout: timeout, httpClient: &http.Client{}}
}

type topic struct {
	FirstURL string  `json:"FirstURL"`
	Text     string  `json:"Text"`
	Name     string  `json:"Name"`
	Topics   []topic `json:"Topics"`
}

type instantAnswer struct {
	Heading        string  `json:"Heading"`
	AbstractText   string  `json:"AbstractText"`
	AbstractURL    string  `json:"AbstractURL"`
	AbstractSource string  `json:"AbstractSource"`
	Answer         string  `json:"Answer"`
	Definition     string  `json:"Definition"`
	DefinitionURL  string  `json:"DefinitionURL"`
	Results        []topic `json:"Results"`
	RelatedTopics  []topic `json:"RelatedTopics"`
}

// Search returns at most n results for query.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if n <= 0 {
		n = 5
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "fva/1.0")

	logger.ToolInfo("Web search: %q", query)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, string(body))
	}

	var ia instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ia); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := flatten(ia)
	if len(results) > n {
		results = results[:n]
	}
	logger.ToolInfo("Web search returned %d results", len(results))
	return results, nil
}

func flatten(ia instantAnswer) []Result {
	var out []Result
	if ia.Answer != "" {
		out = append(out, Result{Title: "Answer", Snippet: ia.Answer})
	}
	if ia.AbstractText != "" {
		title := ia.Heading
		if ia.AbstractSource != "" {
			title = fmt.Sprintf("%s (%s)", ia.Heading, ia.AbstractSource)
		}
		out = append(out, Result{Title: title, URL: ia.AbstractURL, Snippet: ia.AbstractText})
	}
	if ia.Definition != "" {
		out = append(out, Result{Title: "Definition", URL: ia.DefinitionURL, Snippet: ia.Definition})
	}
	var walk func(ts []topic)
	walk = func(ts []topic) {
		for _, t := range ts {
			if len(t.Topics) > 0 {
				walk(t.Topics)
				continue
			}
			if t.Text == "" {
				continue
			}
			title := t.Text
			if i := strings.Index(title, " - "); i > 0 {
				title = title[:i]
			}
			out = append(out, Result{Title: title, URL: t.FirstURL, Snippet: t.Text})
		}
	}
	walk(ia.Results)
	walk(ia.RelatedTopics)
	return out
}
