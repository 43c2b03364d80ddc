package kvsync

import (
	"context"
	"log/slog"
)

// Logger receives one message per observable outcome.
type Logger interface {
	Log(source, message string)
}

// NopLogger discards every message.
type NopLogger struct{}

func (NopLogger) Log(string, string) {}

// SlogLogger emits messages at info level with a source attribute.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a Logger that writes to logger.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Log(source, message string) {
	l.logger.LogAttrs(context.Background(), slog.LevelInfo, message, slog.String("source", source))
}
