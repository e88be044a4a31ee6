package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured slog.Logger writing JSON to stderr.
// Debug mode lowers the level so per-frame diagnostics become visible.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
