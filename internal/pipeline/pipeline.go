// Package pipeline runs one question through retrieval, answer synthesis,
// formatting and optional speech.
package pipeline

import (
	"context"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/hunterwarburton/fva/internal/format"
	"github.com/hunterwarburton/fva/internal/logger"
)

// Retriever fetches ranked chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, namespace string) (core.RetrievalResult, error)
}

// Request is one question from a front-end.
type Request struct {
	Question    string       `json:"question"`
	Model       core.ModelID `json:"model,omitempty"`
	K           int          `json:"k,omitempty"`
	ShowSources bool         `json:"show_sources"`
	ShowAudio   bool         `json:"show_audio"`
	Namespace   string       `json:"namespace,omitempty"`
	History     core.History `json:"history,omitempty"`
}

// Response is the result of a successful run. History is the request
// history extended with this question and answer.
type Response struct {
	Payload   format.Payload `json:"payload"`
	Elapsed   time.Duration  `json:"elapsed_ns"`
	ModelUsed core.ModelID   `json:"model_used"`
	Audio     []byte         `json:"audio,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	History   core.History   `json:"history"`
}

// Pipeline wires the stages together. It holds no per-request state.
type Pipeline struct {
	retriever Retriever
	synth     *Synthesizer
	speaker   core.Speaker
	width     int
}

// New creates a pipeline. speaker may be nil, in which case audio requests
// produce a warning.
func New(r Retriever, s *Synthesizer, speaker core.Speaker, width int) *Pipeline {
	if width <= 0 {
		width = format.DefaultWidth
	}
	return &Pipeline{retriever: r, synth: s, speaker: speaker, width: width}
}

// Run answers req. Speech failures never fail the run; they become warnings.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Response, error) {
	q, err := Normalize(req.Question)
	if err != nil {
		return nil, err
	}
	model, err := core.ParseModelID(string(req.Model))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := p.retriever.Retrieve(ctx, q.Normalized, req.K, req.Namespace)
	if err != nil {
		logger.Error("Retrieval failed for %q: %v", q.Normalized, err)
		return nil, err
	}

	answer, err := p.synth.Synthesize(ctx, q.Normalized, result, model, req.History)
	if err != nil {
		logger.Error("Answer synthesis failed: %v", err)
		return nil, err
	}
	answer.Elapsed = time.Since(start)
	logger.Info("Answered with %s in %s using %d chunks", answer.Model, answer.Elapsed.Round(time.Millisecond), len(answer.Cited))

	payload := format.Render(answer, format.Options{ShowSources: req.ShowSources, Width: p.width})

	resp := &Response{
		Elapsed:   answer.Elapsed,
		ModelUsed: answer.Model,
		History: req.History.Append(
			core.Message{Role: core.RoleUser, Content: q.Normalized},
			core.Message{Role: core.RoleAssistant, Content: answer.Text},
		),
	}

	if req.ShowAudio {
		audio, warning := p.speak(ctx, payload.Answer)
		resp.Audio = audio
		if warning != "" {
			answer.Warnings = append(answer.Warnings, warning)
		}
	}
	payload.Warnings = answer.Warnings
	resp.Payload = payload
	resp.Warnings = answer.Warnings
	return resp, nil
}

func (p *Pipeline) speak(ctx context.Context, text string) ([]byte, string) {
	if p.speaker == nil {
		return nil, core.ErrSpeechSynthesis.Error() + ": speech is not configured"
	}
	audio, err := p.speaker.Synthesize(ctx, text)
	if err != nil {
		logger.Warn("Speech synthesis failed, returning text only: %v", err)
		if core.KindOf(err) == nil {
			err = core.NewError("synthesize speech", core.ErrSpeechSynthesis, err)
		}
		return nil, err.Error()
	}
	return audio, ""
}
