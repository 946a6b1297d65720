package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/llm"
	"github.com/hunterwarburton/fva/internal/logger"
)

// Synthesizer answers a question from retrieved chunks with a language model.
type Synthesizer struct {
	completer llm.Completer
	policy    ContextPolicy
}

// NewSynthesizer creates a synthesizer. A nil policy means StuffPolicy.
func NewSynthesizer(c llm.Completer, policy ContextPolicy) *Synthesizer {
	if policy == nil {
		policy = StuffPolicy{}
	}
	return &Synthesizer{completer: c, policy: policy}
}

// Synthesize builds one prompt from the question, the retrieved chunks and
// prior turns, and asks model for a deterministic answer. The cited chunks
// are the ones the context policy placed in the prompt.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, result core.RetrievalResult, model core.ModelID, history core.History) (core.Answer, error) {
	model, err := core.ParseModelID(string(model))
	if err != nil {
		return core.Answer{}, err
	}

	contextBlock, used := s.policy.Assemble(result.Chunks)
	logger.LLMDebug("Policy %s placed %d of %d chunks (%d chars) in the prompt", s.policy.Name(), len(used), len(result.Chunks), len(contextBlock))

	start := time.Now()
	resp, err := s.completer.ChatCompletion(ctx, llm.CompletionRequest{
		Model:       model,
		Messages:    llm.QAMessages(contextBlock, question, history),
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		var pe *core.PipelineError
		if errors.As(err, &pe) {
			return core.Answer{}, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return core.Answer{}, core.NewError("synthesize", core.ErrGenerationTimeout, err)
		}
		return core.Answer{}, core.NewError("synthesize", core.ErrModelUnavailable, err)
	}

	return core.Answer{
		Text:    strings.TrimSpace(resp.Message.Content),
		Cited:   used,
		Model:   model,
		Elapsed: time.Since(start),
	}, nil
}
