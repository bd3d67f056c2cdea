package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Slog struct {
	l *slog.Logger
}

// New builds a text logger on stderr; LOG_LEVEL=debug enables debug output.
func New() *Slog {
	return NewWithWriter(os.Stderr, os.Getenv("LOG_LEVEL"))
}

func NewWithWriter(w io.Writer, level string) *Slog {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return &Slog{l: slog.New(h)}
}

// With returns a logger that adds args to every record.
func (s *Slog) With(args ...any) *Slog { return &Slog{l: s.l.With(args...)} }

func (s *Slog) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *Slog) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *Slog) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *Slog) Error(msg string, args ...any) { s.l.Error(msg, args...) }
