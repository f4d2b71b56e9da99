// Package logger implements ports.Logger on top of log/slog.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LevelNone disables logging entirely.
const LevelNone = slog.Level(100)

// SlogLogger adapts a *slog.Logger to the field-map logging interface.
type SlogLogger struct {
	log *slog.Logger
}

// New writes text records at or above level to w.
func New(w io.Writer, level slog.Level) *SlogLogger {
	if level >= LevelNone {
		w = io.Discard
	}
	return &SlogLogger{log: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))}
}

// Discard returns a logger that drops everything.
func Discard() *SlogLogger {
	return New(io.Discard, LevelNone)
}

// ParseLevel maps debug|info|warn|error|none, case-insensitively. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "none", "off":
		return LevelNone, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Open builds a logger for the configured level. FIF_DEBUG=1 forces debug.
// A non-empty path is opened for appending; otherwise records go to fallback.
// The returned closer releases the file, if any.
func Open(levelName, path string, fallback io.Writer) (*SlogLogger, io.Closer, error) {
	level, err := ParseLevel(levelName)
	if err != nil {
		return nil, nil, err
	}
	if os.Getenv("FIF_DEBUG") == "1" {
		level = slog.LevelDebug
	}
	if fallback == nil {
		fallback = os.Stderr
	}
	if path == "" || level >= LevelNone {
		return New(fallback, level), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return New(f, level), f, nil
}

func (l *SlogLogger) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug(msg, attrs(fields)...)
}

func (l *SlogLogger) Info(msg string, fields map[string]interface{}) {
	l.log.Info(msg, attrs(fields)...)
}

func (l *SlogLogger) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn(msg, attrs(fields)...)
}

func (l *SlogLogger) Error(msg string, err error, fields map[string]interface{}) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	l.log.Error(msg, args...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// attrs sorts keys so records are stable.
func attrs(fields map[string]interface{}) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
