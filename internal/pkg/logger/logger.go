package logger

import (
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// StdLogger routes ports.Logger calls to a slog text handler.
type StdLogger struct {
	l *slog.Logger
}

// NewStd creates a StdLogger writing to stderr. Verbose enables debug output.
func NewStd(verbose bool) *StdLogger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return New(os.Stderr, level)
}

// NewWithLevel parses a level name (debug, info, warn, error) with warn as default.
func NewWithLevel(name string) *StdLogger {
	return New(os.Stderr, ParseLevel(name))
}

// New creates a StdLogger writing to w at the given minimum level.
func New(w io.Writer, level slog.Level) *StdLogger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return &StdLogger{l: slog.New(h)}
}

// NewNop returns a logger that discards everything.
func NewNop() *StdLogger {
	return New(io.Discard, slog.LevelError+1)
}

// ParseLevel maps a config string onto a slog level.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}

func (s *StdLogger) Debug(msg string, fields map[string]interface{}) {
	s.l.Debug(msg, attrs(fields)...)
}

func (s *StdLogger) Info(msg string, fields map[string]interface{}) {
	s.l.Info(msg, attrs(fields)...)
}

func (s *StdLogger) Warn(msg string, fields map[string]interface{}) {
	s.l.Warn(msg, attrs(fields)...)
}

func (s *StdLogger) Error(msg string, err error, fields map[string]interface{}) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	s.l.Error(msg, args...)
}

// attrs renders fields in key order so output is stable.
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
