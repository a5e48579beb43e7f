// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger for CLI command
// operations. When stderr is a terminal it uses slog.TextHandler for
// human-readable output; when stderr is piped or redirected (scripts,
// the MCP server, CI) it uses slog.JSONHandler so the records stay
// machine-parseable.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := cli.NewCommandLogger().With("command", "staging/reclaim")
func NewCommandLogger() *slog.Logger {
	return NewCommandLoggerAt(slog.LevelInfo)
}

// NewCommandLoggerAt is NewCommandLogger with an explicit minimum
// level. Commands with a --verbose flag use it to drop to LevelDebug.
func NewCommandLoggerAt(level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
