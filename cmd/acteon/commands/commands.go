// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the acteon CLI command tree.
package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/acteon/acteon-go/cmd/acteon/cli"
	"github.com/acteon/acteon-go/lib/version"
)

// Root builds the complete acteon command tree. Results are written to
// out; logs go to the logger passed to Execute.
func Root(out io.Writer) *cli.Command {
	printer := cli.NewPrinter(out)
	return &cli.Command{
		Name: "acteon",
		Description: `acteon: command-line client for the Acteon action gateway.

Dispatch actions, manage rules, and follow the gateway's event
streams with automatic resumption.`,
		Subcommands: []*cli.Command{
			healthCommand(printer),
			dispatchCommand(printer),
			batchCommand(printer),
			rulesCommand(printer),
			streamCommand(printer),
			subscribeCommand(printer),
			watchCommand(printer),
			checkpointsCommand(printer),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					return printer.Text("acteon %s", version.Full())
				},
			},
		},
	}
}
