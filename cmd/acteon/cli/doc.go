// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the acteon CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree by the commands
// package and dispatched via [Command.Execute], which handles flag
// parsing, subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3).
//
// [Printer] renders outcomes and stream events: JSON lines when stdout
// is a pipe, lipgloss-styled lines when it is a terminal.
package cli
