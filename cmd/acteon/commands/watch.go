// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/acteon/acteon-go/cmd/acteon/cli"
	"github.com/acteon/acteon-go/lib/checkpoint"
	"github.com/acteon/acteon-go/lib/clock"
	"github.com/acteon/acteon-go/lib/gateway"
	"github.com/acteon/acteon-go/lib/sse"
	"github.com/acteon/acteon-go/lib/watch"
)

type watchParams struct {
	gatewayFlags
	entities    []string
	namespace   string
	tenant      string
	filter      gateway.StreamFilter
	checkpoint  string
	maxAttempts int
}

func watchCommand(printer *cli.Printer) *cli.Command {
	var params watchParams
	return &cli.Command{
		Name:    "watch",
		Summary: "Follow streams with automatic reconnect and resume",
		Description: `Follow one or more entities (or, with no --entity, the gateway-wide
stream) and reconnect after network failures and gateway restarts,
resuming from the last event seen. With a checkpoint file, a later
run picks up where this one stopped.

Reconnect timing comes from the watch section of the config file.
The command exits when every stream has ended, on a non-retryable
error, or when interrupted.`,
		Examples: []cli.Example{
			{
				Description: "Follow two chains, remembering progress across runs",
				Command:     "acteon watch --entity chain/c-1 --entity chain/c-2 --namespace billing --tenant acme --checkpoint ~/.local/state/acteon/watch.cbor",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			params.register(flagSet)
			flagSet.StringArrayVarP(&params.entities, "entity", "e", nil, "entity to follow as type/id (repeatable)")
			flagSet.StringVar(&params.namespace, "namespace", "", "entity namespace, or stream namespace filter")
			flagSet.StringVar(&params.tenant, "tenant", "", "entity tenant")
			flagSet.StringVar(&params.filter.EventType, "event-type", "", "stream filter: only events of this type")
			flagSet.StringVar(&params.filter.Outcome, "outcome", "", "stream filter: only events with this outcome kind")
			flagSet.StringVar(&params.checkpoint, "checkpoint", "", "checkpoint file (overrides config)")
			flagSet.IntVar(&params.maxAttempts, "max-attempts", -1, "consecutive failed connections before giving up (0 retries forever; default from config)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			targets, err := params.targets()
			if err != nil {
				return err
			}

			client, cfg, err := params.connect(logger)
			if err != nil {
				return err
			}
			path := cfg.Watch.Checkpoint
			if params.checkpoint != "" {
				path = params.checkpoint
			}
			store, err := checkpoint.Open(path, clock.Real())
			if err != nil {
				return err
			}
			maxAttempts := cfg.Watch.MaxAttempts
			if params.maxAttempts >= 0 {
				maxAttempts = params.maxAttempts
			}

			watchers := make([]*watch.Watcher, 0, len(targets))
			for _, target := range targets {
				watcher, err := watch.New(client, watch.Config{
					Target:              target,
					Checkpoints:         store,
					InitialInterval:     cfg.Watch.InitialInterval,
					MaxInterval:         cfg.Watch.MaxInterval,
					Multiplier:          cfg.Watch.Multiplier,
					RandomizationFactor: cfg.Watch.RandomizationFactor,
					MaxAttempts:         maxAttempts,
					Logger:              logger,
				})
				if err != nil {
					return err
				}
				if resume := watcher.LastEventID(); resume != "" {
					logger.Info("resuming from checkpoint", "stream", watcher.Key(), "last_event_id", resume)
				}
				watchers = append(watchers, watcher)
			}

			label := len(watchers) > 1
			return watch.RunAll(ctx, watchers, func(_ context.Context, key string, event sse.Event) error {
				if !label {
					key = ""
				}
				return printer.Event(key, event)
			})
		},
	}
}

// targets parses --entity values, or falls back to the global stream.
func (params *watchParams) targets() ([]watch.Target, error) {
	if len(params.entities) == 0 {
		filter := params.filter
		filter.Namespace = params.namespace
		return []watch.Target{watch.StreamTarget(filter)}, nil
	}

	targets := make([]watch.Target, 0, len(params.entities))
	seen := make(map[string]bool, len(params.entities))
	for _, value := range params.entities {
		entity, err := parseEntity(value, params.namespace, params.tenant)
		if err != nil {
			return nil, err
		}
		if seen[entity.String()] {
			return nil, fmt.Errorf("--entity %s given twice", entity)
		}
		seen[entity.String()] = true
		targets = append(targets, watch.EntityTarget(entity))
	}
	return targets, nil
}

// parseEntity parses "type/id".
func parseEntity(value, namespace, tenant string) (gateway.Entity, error) {
	typeName, id, ok := strings.Cut(value, "/")
	if !ok || id == "" {
		return gateway.Entity{}, fmt.Errorf("--entity %q: want type/id, for example chain/c-1", value)
	}
	entityType, err := gateway.ParseEntityType(typeName)
	if err != nil {
		return gateway.Entity{}, fmt.Errorf("--entity %q: %w", value, err)
	}
	return gateway.Entity{Type: entityType, ID: id, Namespace: namespace, Tenant: tenant}, nil
}
