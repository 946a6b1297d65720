package pipeline

import (
	"strings"

	"github.com/hunterwarburton/fva/internal/core"
)

// ContextPolicy decides which retrieved chunks go into the prompt and how
// they are joined. It returns the context block and the chunks it used.
type ContextPolicy interface {
	Name() string
	Assemble(chunks []core.DocumentChunk) (string, []core.DocumentChunk)
}

const chunkSeparator = "\n\n"

// StuffPolicy places every chunk in the prompt, in retrieval order.
type StuffPolicy struct{}

func (StuffPolicy) Name() string { return "stuff" }

func (StuffPolicy) Assemble(chunks []core.DocumentChunk) (string, []core.DocumentChunk) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	used := make([]core.DocumentChunk, len(chunks))
	copy(used, chunks)
	return strings.Join(texts, chunkSeparator), used
}

// TruncatePolicy places chunks in retrieval order until the next one would
// push the context past MaxChars.
type TruncatePolicy struct {
	MaxChars int
}

func (p TruncatePolicy) Name() string { return "truncate" }

func (p TruncatePolicy) Assemble(chunks []core.DocumentChunk) (string, []core.DocumentChunk) {
	var b strings.Builder
	used := make([]core.DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		extra := len(c.Text)
		if b.Len() > 0 {
			extra += len(chunkSeparator)
		}
		if p.MaxChars > 0 && b.Len()+extra > p.MaxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString(chunkSeparator)
		}
		b.WriteString(c.Text)
		used = append(used, c)
	}
	return b.String(), used
}

// PolicyByName returns the named policy; unknown names get StuffPolicy.
func PolicyByName(name string, maxChars int) ContextPolicy {
	if name == "truncate" {
		return TruncatePolicy{MaxChars: maxChars}
	}
	return StuffPolicy{}
}
