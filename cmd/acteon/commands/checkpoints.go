// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/acteon/acteon-go/cmd/acteon/cli"
	"github.com/acteon/acteon-go/lib/checkpoint"
	"github.com/acteon/acteon-go/lib/clock"
	"github.com/acteon/acteon-go/lib/codec"
)

type checkpointsParams struct {
	configPath string
	path       string
	diagnose   bool
	remove     string
}

func checkpointsCommand(printer *cli.Printer) *cli.Command {
	var params checkpointsParams
	return &cli.Command{
		Name:    "checkpoints",
		Summary: "Show or edit saved stream positions",
		Description: `Show the resume tokens "acteon watch" saved. The file defaults to the
watch.checkpoint setting of the config file.

--diag prints the raw CBOR document in diagnostic notation. --delete
forgets one stream, so the next watch starts from the live tail (or
the entity's history).`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("checkpoints", pflag.ContinueOnError)
			flagSet.StringVar(&params.configPath, "config", "", "config file (default $ACTEON_CONFIG)")
			flagSet.StringVar(&params.path, "checkpoint", "", "checkpoint file (overrides config)")
			flagSet.BoolVar(&params.diagnose, "diag", false, "print the file in CBOR diagnostic notation")
			flagSet.StringVar(&params.remove, "delete", "", "forget the stream with this key")
			return flagSet
		},
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			path, err := params.resolve()
			if err != nil {
				return err
			}

			if params.diagnose {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				notation, err := codec.Diagnose(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				return printer.Text("%s", notation)
			}

			store, err := checkpoint.Open(path, clock.Real())
			if err != nil {
				return err
			}
			if params.remove != "" {
				if _, ok := store.Get(params.remove); !ok {
					return fmt.Errorf("no checkpoint for %q in %s", params.remove, path)
				}
				if err := store.Delete(params.remove); err != nil {
					return err
				}
				return printer.Text("deleted checkpoint for %s", params.remove)
			}

			entries := store.Entries()
			if !printer.Styled() {
				return printer.JSON(entries)
			}
			if len(entries) == 0 {
				return printer.Text("no checkpoints in %s", path)
			}
			for _, entry := range entries {
				if err := printer.Text("%-40s %-24s %s", entry.Key, entry.LastEventID, entry.UpdatedAt.Format(time.RFC3339)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// resolve picks the checkpoint file from --checkpoint or the config.
func (params *checkpointsParams) resolve() (string, error) {
	if params.path != "" {
		return params.path, nil
	}
	flags := gatewayFlags{configPath: params.configPath}
	cfg, err := flags.load()
	if err != nil {
		return "", err
	}
	if cfg.Watch.Checkpoint == "" {
		return "", errors.New("no checkpoint file: pass --checkpoint or set watch.checkpoint")
	}
	return cfg.Watch.Checkpoint, nil
}
