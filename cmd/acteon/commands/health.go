// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/acteon/acteon-go/cmd/acteon/cli"
)

func healthCommand(printer *cli.Printer) *cli.Command {
	var flags gatewayFlags
	return &cli.Command{
		Name:    "health",
		Summary: "Check that the gateway is up",
		Description: `Call the gateway's health endpoint. Exits 0 when the gateway answers
with success and 1 when it answers with an error status.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("health", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, _ []string, logger *slog.Logger) error {
			client, cfg, err := flags.connect(logger)
			if err != nil {
				return err
			}

			if err := client.Health(ctx); err != nil {
				return err
			}
			if printer.Styled() {
				return printer.Text("gateway at %s is healthy", cfg.Gateway.URL)
			}
			return printer.JSON(map[string]string{"status": "ok", "url": cfg.Gateway.URL})
		},
	}
}
