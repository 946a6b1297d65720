package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
)

// Options controls Render.
type Options struct {
	ShowSources bool
	Width       int
}

// Source is one cited passage as shown to the user.
type Source struct {
	Label    string `json:"label"`
	SourceID string `json:"source_id"`
	Title    string `json:"title,omitempty"`
	Page     int    `json:"page,omitempty"`
	Text     string `json:"text"`
}

// Payload is what a front-end displays for one answer.
type Payload struct {
	Answer   string        `json:"answer"`
	Sources  []Source      `json:"sources,omitempty"`
	Model    core.ModelID  `json:"model"`
	Elapsed  time.Duration `json:"elapsed_ns"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Render reflows the answer and, when asked, lists its cited chunks as
// "Source 1".."Source N" in retrieval order.
func Render(answer core.Answer, opts Options) Payload {
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	p := Payload{
		Answer:   Reflow(answer.Text, width),
		Model:    answer.Model,
		Elapsed:  answer.Elapsed,
		Warnings: answer.Warnings,
	}
	if opts.ShowSources {
		p.Sources = make([]Source, 0, len(answer.Cited))
		for i, c := range answer.Cited {
			p.Sources = append(p.Sources, Source{
				Label:    fmt.Sprintf("Source %d", i+1),
				SourceID: c.SourceID,
				Title:    c.Title,
				Page:     c.Page,
				Text:     Reflow(c.Text, width),
			})
		}
	}
	return p
}

// PlainText renders the payload for text-only surfaces such as chat and terminals.
func (p Payload) PlainText() string {
	var b strings.Builder
	b.WriteString(p.Answer)
	if len(p.Sources) > 0 {
		b.WriteString("\n\nSources:")
		for _, s := range p.Sources {
			fmt.Fprintf(&b, "\n\n%s: %s", s.Label, s.SourceID)
			if s.Page > 0 {
				fmt.Fprintf(&b, " (p. %d)", s.Page)
			}
			b.WriteString("\n")
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
