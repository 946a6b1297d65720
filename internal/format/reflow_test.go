package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hunterwarburton/fva/internal/core"
)

func TestReflow(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{name: "short line unchanged", text: "hello world", width: 20, want: "hello world"},
		{name: "wraps at word boundary", text: "the quick brown fox", width: 10, want: "the quick\nbrown fox"},
		{name: "collapses whitespace", text: "  a   b\tc  ", width: 10, want: "a b c"},
		{name: "keeps blank lines", text: "a\n\nb", width: 10, want: "a\n\nb"},
		{name: "whitespace line becomes empty", text: "a\n   \nb", width: 10, want: "a\n\nb"},
		{name: "breaks long word", text: "abcdefghij", width: 4, want: "abcd\nefgh\nij"},
		{name: "long word fills current line", text: "ab cdefghij", width: 5, want: "ab cd\nefghi\nj"},
		{name: "does not merge lines", text: "one\ntwo", width: 80, want: "one\ntwo"},
		{name: "default width", text: strings.Repeat("x ", 60), width: 0, want: strings.TrimSpace(strings.Repeat("x ", 55)) + "\n" + strings.TrimSpace(strings.Repeat("x ", 5))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reflow(tt.text, tt.width); got != tt.want {
				t.Fatalf("Reflow(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestReflowProperties(t *testing.T) {
	inputs := []string{
		"",
		"\n\n",
		"The Timber Supply Review determines the allowable annual cut for each timber supply area in the province.",
		"line one\nline two is quite a bit longer than line one and will need wrapping at forty\n\nafter blank",
		strings.Repeat("forestry ", 40),
		"averyveryveryveryveryverylongwordthatexceedsthewidth next",
		"Größe der Fläche für Douglasie und Hemlock im Küstenwald",
	}
	for _, width := range []int{5, 17, 40, 110} {
		for _, in := range inputs {
			once := Reflow(in, width)
			if twice := Reflow(once, width); twice != once {
				t.Errorf("not idempotent at width %d for %q:\n%q\n%q", width, in, once, twice)
			}
			outLines := strings.Split(once, "\n")
			if len(outLines) < len(strings.Split(in, "\n")) {
				t.Errorf("line count shrank at width %d for %q", width, in)
			}
			for _, l := range outLines {
				if utf8.RuneCountInString(l) > width {
					t.Errorf("line %q exceeds width %d", l, width)
				}
			}
		}
	}
}

func TestRender(t *testing.T) {
	answer := core.Answer{
		Text:  "It sets the cut.",
		Model: core.ModelGPT4,
		Cited: []core.DocumentChunk{
			{SourceID: "A", Text: "first"},
			{SourceID: "B", Text: "second", Page: 2},
			{SourceID: "B", Text: "third"},
			{SourceID: "C", Text: "fourth"},
		},
	}

	p := Render(answer, Options{ShowSources: true})
	if len(p.Sources) != 4 {
		t.Fatalf("expected 4 sources, got %d", len(p.Sources))
	}
	for i, want := range []string{"A", "B", "B", "C"} {
		if p.Sources[i].SourceID != want || p.Sources[i].Label != "Source "+string(rune('1'+i)) {
			t.Fatalf("source %d = %+v", i, p.Sources[i])
		}
	}
	if !strings.Contains(p.PlainText(), "Source 2: B (p. 2)") {
		t.Fatalf("unexpected plain text:\n%s", p.PlainText())
	}

	if hidden := Render(answer, Options{}); hidden.Sources != nil {
		t.Fatalf("sources should be omitted when not requested")
	}
}
