package rag

import (
	"encoding/json"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/logger"
)

// FormatChunksAsJSON renders retrieved chunks for a tool result message.
func FormatChunksAsJSON(chunks []core.DocumentChunk) string {
	if len(chunks) == 0 {
		return `{"documents": [], "message": "No relevant documents found."}`
	}

	type documentResult struct {
		Source string  `json:"source"`
		Title  string  `json:"title,omitempty"`
		Page   int     `json:"page,omitempty"`
		Score  float32 `json:"score"`
		Text   string  `json:"text"`
	}

	out := make([]documentResult, 0, len(chunks))
	for _, c := range chunks {
		text := c.Text
		if text == "" {
			text = "(text not available)"
		}
		out = append(out, documentResult{
			Source: c.SourceID,
			Title:  c.Title,
			Page:   c.Page,
			Score:  c.Score,
			Text:   text,
		})
	}

	jsonData, err := json.Marshal(map[string]interface{}{"documents": out})
	if err != nil {
		logger.Error("Failed to marshal search results to JSON: %v", err)
		return `{"error": "Failed to format results as JSON"}`
	}
	return string(jsonData)
}
