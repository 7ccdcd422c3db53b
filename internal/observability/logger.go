// Package observability provides logging setup and lightweight in-process
// metrics.
package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON in prod, human-readable text
// with debug level otherwise.
func NewLogger(mode string) *slog.Logger {
	if mode == "prod" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
