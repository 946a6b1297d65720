package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestComponentPrefixAndDebugGate(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { Init(false) })

	Init(false)
	Debug("hidden %d", 1)
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug output leaked while disabled: %q", buf.String())
	}

	LLMInfo("sent %d messages", 3)
	if !strings.Contains(buf.String(), "INFO: ") || !strings.Contains(buf.String(), "[llm] sent 3 messages") {
		t.Fatalf("unexpected info line: %q", buf.String())
	}

	buf.Reset()
	InitLevel("DEBUG")
	if !IsDebugEnabled() {
		t.Fatalf("expected debug to be enabled")
	}
	TelegramDebug("chat %d", 42)
	if !strings.Contains(buf.String(), "[telegram] chat 42") {
		t.Fatalf("unexpected debug line: %q", buf.String())
	}
}
