// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// commandLevel is shared by every logger NewCommandLogger returns, so
// a --verbose flag parsed after the logger exists still takes effect.
var commandLevel = new(slog.LevelVar)

// NewCommandLogger creates a structured logger for CLI command operations.
// When stderr is a terminal, uses slog.TextHandler for human-readable output.
// When stderr is piped or redirected (CI, scripts, log shippers), uses
// slog.JSONHandler for machine-parseable output.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := logger.With("command", "watch", "entities", len(entities))
func NewCommandLogger() *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), commandLevel)
}

// SetVerbose switches command loggers between info and debug level.
func SetVerbose(verbose bool) {
	if verbose {
		commandLevel.Set(slog.LevelDebug)
	} else {
		commandLevel.Set(slog.LevelInfo)
	}
}

func newLogger(w io.Writer, terminal bool, level slog.Leveler) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}
