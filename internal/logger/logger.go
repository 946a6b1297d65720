package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

var (
	mu sync.RWMutex
	// Debug flag to control debug logging
	debugEnabled = false

	debugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	infoLogger  = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime)
	warnLogger  = log.New(os.Stdout, "WARN: ", log.Ldate|log.Ltime)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
)

// Init initializes the logger
func Init(debug bool) {
	mu.Lock()
	debugEnabled = debug
	mu.Unlock()

	if debug {
		Debug("Debug logging enabled")
	}
}

// InitLevel initializes the logger from a textual level such as "debug" or "info".
func InitLevel(level string) {
	Init(strings.EqualFold(strings.TrimSpace(level), "debug"))
}

// SetOutput redirects every level to w. Used by tests and the TUI, which owns the terminal.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range []*log.Logger{debugLogger, infoLogger, warnLogger, errorLogger} {
		l.SetOutput(w)
	}
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugEnabled
}

func output(l *log.Logger, component, format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	if component != "" {
		msg = "[" + component + "] " + msg
	}
	// depth 3: output -> exported helper -> caller
	l.Output(3, msg)
}

// Debug logs a debug message if debug mode is enabled
func Debug(format string, v ...interface{}) {
	if IsDebugEnabled() {
		output(debugLogger, "", format, v...)
	}
}

// Info logs an info message
func Info(format string, v ...interface{}) { output(infoLogger, "", format, v...) }

// Warn logs a recoverable problem
func Warn(format string, v ...interface{}) { output(warnLogger, "", format, v...) }

// Error logs an error message
func Error(format string, v ...interface{}) { output(errorLogger, "", format, v...) }

// LLM component

func LLMDebug(format string, v ...interface{}) {
	if IsDebugEnabled() {
		output(debugLogger, "llm", format, v...)
	}
}
func LLMInfo(format string, v ...interface{})  { output(infoLogger, "llm", format, v...) }
func LLMWarn(format string, v ...interface{})  { output(warnLogger, "llm", format, v...) }
func LLMError(format string, v ...interface{}) { output(errorLogger, "llm", format, v...) }

// Telegram component

func TelegramDebug(format string, v ...interface{}) {
	if IsDebugEnabled() {
		output(debugLogger, "telegram", format, v...)
	}
}
func TelegramInfo(format string, v ...interface{})  { output(infoLogger, "telegram", format, v...) }
func TelegramWarn(format string, v ...interface{})  { output(warnLogger, "telegram", format, v...) }
func TelegramError(format string, v ...interface{}) { output(errorLogger, "telegram", format, v...) }

// Tool component

func ToolInfo(format string, v ...interface{})  { output(infoLogger, "tool", format, v...) }
func ToolError(format string, v ...interface{}) { output(errorLogger, "tool", format, v...) }

// HTTP component

func HTTPInfo(format string, v ...interface{})  { output(infoLogger, "http", format, v...) }
func HTTPError(format string, v ...interface{}) { output(errorLogger, "http", format, v...) }
