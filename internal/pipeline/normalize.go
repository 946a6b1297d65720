package pipeline

import (
	"strings"

	"github.com/hunterwarburton/fva/internal/core"
)

// Normalize trims surrounding whitespace from a question and rejects it when
// nothing is left.
func Normalize(raw string) (core.Query, error) {
	q := core.Query{Raw: raw, Normalized: strings.TrimSpace(raw)}
	if q.Normalized == "" {
		return q, core.NewError("normalize", core.ErrEmptyQuery, nil)
	}
	return q, nil
}
