package core

import "fmt"

// ModelID is one of the language models the assistant may use.
type ModelID string

const (
	ModelGPT4  ModelID = "gpt-4"
	ModelGPT35 ModelID = "gpt-3.5-turbo"
)

// DefaultModel is used when a caller does not pick one.
const DefaultModel = ModelGPT4

// SupportedModels lists the selectable models in display order.
func SupportedModels() []ModelID {
	return []ModelID{ModelGPT4, ModelGPT35}
}

// ParseModelID validates a free-form model name. Empty input selects the
// default model; anything outside the supported set is rejected.
func ParseModelID(s string) (ModelID, error) {
	if s == "" {
		return DefaultModel, nil
	}
	for _, m := range SupportedModels() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", NewError("parse model", ErrModelUnavailable, fmt.Errorf("unsupported model %q", s))
}
