// Package logger writes client diagnostics. While the TUI owns the terminal
// lines go to the event bus instead, so they render inside the view.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"flashcards/internal/client/events"
)

// Level orders log lines by severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

type Logger struct {
	mu        sync.RWMutex
	out       *log.Logger
	eventBus  *events.Bus
	tuiMode   bool
	threshold Level
}

var (
	defaultLogger  = &Logger{out: log.New(os.Stderr, "", log.LstdFlags), threshold: LevelInfo}
	originalWriter io.Writer
)

// SetOutput redirects non-TUI output to w.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.out.SetOutput(w)
}

// SetEventBus sets the event bus for TUI mode logging.
func SetEventBus(bus *events.Bus) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.eventBus = bus
}

// SetVerbose lowers the threshold to debug, which also enables request lines.
func SetVerbose(enabled bool) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	if enabled {
		defaultLogger.threshold = LevelDebug
	} else {
		defaultLogger.threshold = LevelInfo
	}
}

// SetTUIMode enables or disables TUI mode.
// In TUI mode lines go to the event bus and the standard logger is muted.
func SetTUIMode(enabled bool) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.tuiMode = enabled

	if enabled {
		originalWriter = log.Writer()
		log.SetOutput(io.Discard)
	} else if originalWriter != nil {
		log.SetOutput(originalWriter)
	}
}

func Debug(format string, args ...any) { defaultLogger.logf(LevelDebug, format, args...) }
func Info(format string, args ...any)  { defaultLogger.logf(LevelInfo, format, args...) }
func Warn(format string, args ...any)  { defaultLogger.logf(LevelWarn, format, args...) }
func Error(format string, args ...any) { defaultLogger.logf(LevelError, format, args...) }

// Request logs one finished API call at debug level. Transport failures
// (status 0) and 5xx responses are raised to warn.
func Request(d events.RequestData) {
	level := LevelDebug
	if d.Status == 0 || d.Status >= 500 {
		level = LevelWarn
	}
	status := "---"
	if d.Status != 0 {
		status = fmt.Sprint(d.Status)
	}
	defaultLogger.logf(level, "%s %s %s %s %dB", d.Method, d.Path, status, d.Duration.Round(time.Millisecond), d.Bytes)
}

func (l *Logger) logf(level Level, format string, args ...any) {
	l.mu.RLock()
	tuiMode := l.tuiMode
	bus := l.eventBus
	threshold := l.threshold
	out := l.out
	l.mu.RUnlock()

	if level < threshold {
		return
	}
	message := fmt.Sprintf(format, args...)

	if tuiMode && bus != nil {
		bus.PublishLog(level.String(), message)
		return
	}
	out.Printf("[%s] %s", level, message)
}
