// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/acteon/acteon-go/cmd/acteon/cli"
	"github.com/acteon/acteon-go/lib/gateway"
)

// followFlags are shared by stream and subscribe.
type followFlags struct {
	gatewayFlags
	lastEventID string
	count       int
}

func (flags *followFlags) register(flagSet *pflag.FlagSet) {
	flags.gatewayFlags.register(flagSet)
	flagSet.StringVar(&flags.lastEventID, "last-event-id", "", "resume after this event id")
	flagSet.IntVarP(&flags.count, "count", "n", 0, "exit after this many events (0 follows until the stream ends)")
}

// follow prints events from subscription until the stream ends, the
// user interrupts, or count events have been printed.
func (flags *followFlags) follow(ctx context.Context, subscription *gateway.Subscription, printer *cli.Printer, logger *slog.Logger) error {
	defer subscription.Close()

	for flags.count <= 0 || subscription.Delivered() < flags.count {
		event, err := subscription.Next()
		if err != nil {
			if endedCleanly(ctx, err) {
				logger.Debug("stream ended", "delivered", subscription.Delivered(), "last_event_id", subscription.LastEventID())
				return nil
			}
			if resume := subscription.LastEventID(); resume != "" {
				return fmt.Errorf("%w (resume with --last-event-id %s)", err, resume)
			}
			return err
		}
		if skipped, ok := event.Lagged(); ok {
			logger.Warn("gateway dropped events for this subscriber", "skipped", skipped)
		}
		if err := printer.Event("", event); err != nil {
			return err
		}
	}
	return nil
}

type streamParams struct {
	followFlags
	filter gateway.StreamFilter
}

func streamCommand(printer *cli.Printer) *cli.Command {
	var params streamParams
	return &cli.Command{
		Name:    "stream",
		Summary: "Follow the gateway-wide event stream",
		Description: `Print events from the gateway-wide stream, optionally narrowed by
filters, until the gateway ends the stream or the command is
interrupted. Use --last-event-id to resume where a previous run
stopped; a failed run prints the id to resume from.`,
		Examples: []cli.Example{
			{
				Description: "Follow failures in one namespace",
				Command:     "acteon stream --namespace notifications --outcome failed",
			},
			{
				Description: "Print the next 10 events as JSON lines",
				Command:     "acteon stream -n 10 | jq .",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("stream", pflag.ContinueOnError)
			params.followFlags.register(flagSet)
			flagSet.StringVar(&params.filter.Namespace, "namespace", "", "only events in this namespace")
			flagSet.StringVar(&params.filter.ActionType, "action-type", "", "only events for this action type")
			flagSet.StringVar(&params.filter.Outcome, "outcome", "", "only events with this outcome kind")
			flagSet.StringVar(&params.filter.EventType, "event-type", "", "only events of this type")
			flagSet.StringVar(&params.filter.ChainID, "chain-id", "", "only events for this chain")
			flagSet.StringVar(&params.filter.GroupID, "group-id", "", "only events for this group")
			flagSet.StringVar(&params.filter.ActionID, "action-id", "", "only events for this action")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			client, _, err := params.connect(logger)
			if err != nil {
				return err
			}
			subscription, err := client.Stream(ctx, params.filter, gateway.WithLastEventID(params.lastEventID))
			if err != nil {
				return err
			}
			return params.follow(ctx, subscription, printer, logger)
		},
	}
}

type subscribeParams struct {
	followFlags
	namespace string
	tenant    string
	noHistory bool
}

func subscribeCommand(printer *cli.Printer) *cli.Command {
	var params subscribeParams
	return &cli.Command{
		Name:    "subscribe",
		Summary: "Follow one chain, group, or action",
		Description: `Print the events of one entity. By default the gateway first replays
the entity's history, then streams live events.`,
		Usage: "acteon subscribe <chain|group|action> <id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Watch a chain advance",
				Command:     "acteon subscribe chain 3f2c --namespace billing --tenant acme",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("subscribe", pflag.ContinueOnError)
			params.followFlags.register(flagSet)
			flagSet.StringVar(&params.namespace, "namespace", "", "entity namespace")
			flagSet.StringVar(&params.tenant, "tenant", "", "entity tenant")
			flagSet.BoolVar(&params.noHistory, "no-history", false, "skip past events and stream only live ones")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <type> <id>, got %d arguments", len(args))
			}
			entityType, err := gateway.ParseEntityType(args[0])
			if err != nil {
				return err
			}
			entity := gateway.Entity{
				Type:           entityType,
				ID:             args[1],
				Namespace:      params.namespace,
				Tenant:         params.tenant,
				ExcludeHistory: params.noHistory,
			}

			client, _, err := params.connect(logger)
			if err != nil {
				return err
			}
			subscription, err := client.Subscribe(ctx, entity, gateway.WithLastEventID(params.lastEventID))
			if err != nil {
				return err
			}
			return params.follow(ctx, subscription, printer, logger)
		},
	}
}
