// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/acteon/acteon-go/cmd/acteon/cli"
	"github.com/acteon/acteon-go/lib/dispatch"
	"github.com/acteon/acteon-go/lib/gateway"
)

type dispatchParams struct {
	gatewayFlags
	file       string
	namespace  string
	tenant     string
	provider   string
	actionType string
	payload    string
	dedupKey   string
	labels     map[string]string
	dryRun     bool
}

func dispatchCommand(printer *cli.Printer) *cli.Command {
	var params dispatchParams
	return &cli.Command{
		Name:    "dispatch",
		Summary: "Dispatch one action",
		Description: `Send one action through the gateway and print its outcome.

The action comes either from flags or, with --file, from a JSON
document in the gateway's wire format. An id and creation time are
generated when missing.`,
		Usage: "acteon dispatch [flags]",
		Examples: []cli.Example{
			{
				Description: "Send a welcome email",
				Command:     `acteon dispatch --namespace notifications --tenant acme --provider email --type send_email --payload '{"to":"a@example.com"}'`,
			},
			{
				Description: "Ask which rule would fire, without side effects",
				Command:     "acteon dispatch --file action.json --dry-run",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dispatch", pflag.ContinueOnError)
			params.register(flagSet)
			flagSet.StringVarP(&params.file, "file", "f", "", "read the action from a JSON file (- for stdin)")
			flagSet.StringVar(&params.namespace, "namespace", "", "action namespace")
			flagSet.StringVar(&params.tenant, "tenant", "", "action tenant")
			flagSet.StringVar(&params.provider, "provider", "", "target provider")
			flagSet.StringVar(&params.actionType, "type", "", "action type")
			flagSet.StringVar(&params.payload, "payload", "{}", "JSON object payload")
			flagSet.StringVar(&params.dedupKey, "dedup-key", "", "deduplication key")
			flagSet.StringToStringVar(&params.labels, "label", nil, "metadata label key=value (repeatable)")
			flagSet.BoolVar(&params.dryRun, "dry-run", false, "evaluate rules without executing")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			action, err := params.action()
			if err != nil {
				return err
			}
			client, _, err := params.connect(logger)
			if err != nil {
				return err
			}

			var options []gateway.DispatchOption
			if params.dryRun {
				options = append(options, gateway.WithDryRun())
			}
			outcome, err := client.Dispatch(ctx, action, options...)
			if err != nil {
				return err
			}
			return printer.Outcome(action.ID, outcome)
		},
	}
}

// action builds the action from --file or from the individual flags.
func (params *dispatchParams) action() (dispatch.Action, error) {
	if params.file != "" {
		data, err := readInput(params.file)
		if err != nil {
			return dispatch.Action{}, err
		}
		var action dispatch.Action
		if err := json.Unmarshal(data, &action); err != nil {
			return dispatch.Action{}, fmt.Errorf("parsing %s: %w", params.file, err)
		}
		return action, action.Validate()
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(params.payload), &payload); err != nil {
		return dispatch.Action{}, fmt.Errorf("--payload must be a JSON object: %w", err)
	}
	if payload == nil {
		return dispatch.Action{}, errors.New("--payload must be a JSON object, not null")
	}

	var options []dispatch.ActionOption
	if params.dedupKey != "" {
		options = append(options, dispatch.WithDedupKey(params.dedupKey))
	}
	if len(params.labels) > 0 {
		options = append(options, dispatch.WithMetadata(params.labels))
	}
	action := dispatch.NewAction(params.namespace, params.tenant, params.provider, params.actionType, payload, options...)
	return action, action.Validate()
}

type batchParams struct {
	gatewayFlags
	file   string
	dryRun bool
}

func batchCommand(printer *cli.Printer) *cli.Command {
	var params batchParams
	return &cli.Command{
		Name:    "batch",
		Summary: "Dispatch many actions in one request",
		Description: `Send a JSON array of actions in one request and print one result per
action, in order. A failed item does not affect the others. Exits 1
when any item failed.`,
		Usage: "acteon batch --file <actions.json> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("batch", pflag.ContinueOnError)
			params.register(flagSet)
			flagSet.StringVarP(&params.file, "file", "f", "", "JSON array of actions (- for stdin)")
			flagSet.BoolVar(&params.dryRun, "dry-run", false, "evaluate rules without executing")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if params.file == "" {
				return errors.New("--file is required")
			}
			data, err := readInput(params.file)
			if err != nil {
				return err
			}
			var actions []dispatch.Action
			if err := json.Unmarshal(data, &actions); err != nil {
				return fmt.Errorf("parsing %s: %w", params.file, err)
			}
			for index, action := range actions {
				if err := action.Validate(); err != nil {
					return fmt.Errorf("action %d: %w", index, err)
				}
			}

			client, _, err := params.connect(logger)
			if err != nil {
				return err
			}
			var options []gateway.DispatchOption
			if params.dryRun {
				options = append(options, gateway.WithDryRun())
			}
			results, err := client.DispatchBatch(ctx, actions, options...)
			if err != nil {
				return err
			}

			failed := 0
			for index, result := range results {
				label := ""
				if index < len(actions) {
					label = actions[index].ID
				}
				if !result.OK() {
					failed++
				}
				if err := printer.BatchResult(label, result); err != nil {
					return err
				}
			}
			if failed > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
