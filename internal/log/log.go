// Package log defines the logger used across ersc. By default it writes
// colored, levelled lines to stderr but it can be replaced with another Logger.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level controls which messages the default logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

// Logger is the logging interface used by ersc packages.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

var (
	mu     sync.RWMutex
	logger Logger = NewDefaultLogger(os.Stderr, LevelInfo)
)

// SetLogger overwrites the package logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func current() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Errorf logs at error level.
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Warnf logs at warning level.
func Warnf(format string, args ...any) { current().Warnf(format, args...) }

// Infof logs at info level.
func Infof(format string, args ...any) { current().Infof(format, args...) }

// Debugf logs at debug level.
func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// DefaultLogger writes prefixed lines to an io.Writer.
type DefaultLogger struct {
	mu    sync.Mutex
	out   io.Writer
	level Level

	errPrefix  *color.Color
	warnPrefix *color.Color
	infoPrefix *color.Color
	dbgPrefix  *color.Color
}

// NewDefaultLogger creates a logger that emits messages at or above level.
func NewDefaultLogger(out io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{
		out:        out,
		level:      level,
		errPrefix:  color.New(color.FgRed, color.Bold),
		warnPrefix: color.New(color.FgYellow),
		infoPrefix: color.New(color.FgCyan),
		dbgPrefix:  color.New(color.Faint),
	}
}

// Errorf is the formatted error logging function.
func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.emit(LevelError, l.errPrefix, "Error", format, args...)
}

// Warnf is the formatted warning logging function.
func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.emit(LevelWarn, l.warnPrefix, "Warning", format, args...)
}

// Infof is the formatted info logging function.
func (l *DefaultLogger) Infof(format string, args ...any) {
	l.emit(LevelInfo, l.infoPrefix, "Info", format, args...)
}

// Debugf is the formatted debug logging function.
func (l *DefaultLogger) Debugf(format string, args ...any) {
	l.emit(LevelDebug, l.dbgPrefix, "Debug", format, args...)
}

func (l *DefaultLogger) emit(level Level, prefix *color.Color, label, format string, args ...any) {
	if level < l.level {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = prefix.Fprintf(l.out, "%s:", label)
	_, _ = fmt.Fprintf(l.out, " %s\n", msg)
}

// Discard is a Logger that drops everything. Useful in tests.
type Discard struct{}

func (Discard) Errorf(string, ...any) {}
func (Discard) Warnf(string, ...any)  {}
func (Discard) Infof(string, ...any)  {}
func (Discard) Debugf(string, ...any) {}
