// Package logger is the logging face of the toolkit. Library code logs
// through the Logger interface so applications can route messages into
// whatever they already use; New adapts any log/slog handler.
package logger

import "log/slog"

// Logger accepts a message plus alternating key/value pairs, matching the
// loosely-typed slog convention.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Slog is a Logger backed by a log/slog handler.
type Slog struct {
	logger *slog.Logger
}

func New(h slog.Handler) *Slog {
	return &Slog{logger: slog.New(h)}
}

func (s *Slog) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

func (s *Slog) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

func (s *Slog) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

func (s *Slog) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}
