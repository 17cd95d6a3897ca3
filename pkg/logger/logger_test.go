package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dbwire/dbwire.go/pkg/logger"
)

func TestSlogLevels(t *testing.T) {
	methods := map[string]func(l logger.Logger) func(msg string, args ...any){
		"ERROR": func(l logger.Logger) func(string, ...any) { return l.Error },
		"WARN":  func(l logger.Logger) func(string, ...any) { return l.Warn },
		"INFO":  func(l logger.Logger) func(string, ...any) { return l.Info },
		"DEBUG": func(l logger.Logger) func(string, ...any) { return l.Debug },
	}

	for level, method := range methods {
		t.Run(level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			l := logger.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			method(l)("ping failed", "attempt", 3)

			var entry struct {
				Level   string `json:"level"`
				Msg     string `json:"msg"`
				Attempt int    `json:"attempt"`
			}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			require.Equal(t, level, entry.Level)
			require.Equal(t, "ping failed", entry.Msg)
			require.Equal(t, 3, entry.Attempt)
		})
	}
}
