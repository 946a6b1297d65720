// Package format turns answers into display text.
package format

import "strings"

// DefaultWidth is the wrap width used when none is given.
const DefaultWidth = 110

// Reflow word-wraps each line of text to width columns. Lines are wrapped
// independently and never merged; whitespace runs inside a line collapse to
// one space, words longer than width are broken, and blank lines stay blank.
// Reflow(Reflow(t, w), w) == Reflow(t, w).
func Reflow(text string, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.Join(wrapLine(line, width), "\n"))
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	var cur []rune
	flush := func() {
		lines = append(lines, string(cur))
		cur = nil
	}

	for _, w := range words {
		r := []rune(w)
		for len(r) > 0 {
			sep := 0
			if len(cur) > 0 {
				sep = 1
			}
			if len(cur)+sep+len(r) <= width {
				if sep == 1 {
					cur = append(cur, ' ')
				}
				cur = append(cur, r...)
				break
			}
			if len(r) <= width {
				flush()
				continue
			}
			// Word longer than a whole line: fill what is left of this one.
			space := width - len(cur) - sep
			if space <= 0 {
				flush()
				continue
			}
			if sep == 1 {
				cur = append(cur, ' ')
			}
			cur = append(cur, r[:space]...)
			r = r[space:]
			flush()
		}
	}
	if len(cur) > 0 {
		flush()
	}
	return lines
}
