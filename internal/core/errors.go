package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the question-answering pipeline.
var (
	ErrEmptyQuery        = errors.New("question is empty")
	ErrEmbeddingFailure  = errors.New("embedding failed")
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrModelUnavailable  = errors.New("language model unavailable")
	ErrGenerationTimeout = errors.New("answer generation timed out")
	ErrSpeechSynthesis   = errors.New("speech synthesis failed")
	ErrConfiguration     = errors.New("invalid configuration")
)

// PipelineError ties a failure to the operation that produced it and to one
// of the error kinds above. errors.Is matches both the kind and the cause.
type PipelineError struct {
	Op   string
	Kind error
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError builds a PipelineError of the given kind.
func NewError(op string, kind, err error) *PipelineError {
	return &PipelineError{Op: op, Kind: kind, Err: err}
}

// KindOf returns the error kind carried by err, or nil if err is not one of
// the pipeline kinds.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrEmptyQuery,
		ErrEmbeddingFailure,
		ErrIndexUnavailable,
		ErrModelUnavailable,
		ErrGenerationTimeout,
		ErrSpeechSynthesis,
		ErrConfiguration,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
