// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/acteon/acteon-go/cmd/acteon/cli"
)

func rulesCommand(printer *cli.Printer) *cli.Command {
	return &cli.Command{
		Name:    "rules",
		Summary: "List, reload, enable, and disable rules",
		Subcommands: []*cli.Command{
			rulesListCommand(printer),
			rulesReloadCommand(printer),
			ruleToggleCommand(printer, "enable", "Enable a rule by name", true),
			ruleToggleCommand(printer, "disable", "Disable a rule by name", false),
		},
	}
}

func rulesListCommand(printer *cli.Printer) *cli.Command {
	var flags gatewayFlags
	return &cli.Command{
		Name:    "list",
		Summary: "List loaded rules",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, _ []string, logger *slog.Logger) error {
			client, _, err := flags.connect(logger)
			if err != nil {
				return err
			}
			rules, err := client.ListRules(ctx)
			if err != nil {
				return err
			}
			if !printer.Styled() {
				return printer.JSON(rules)
			}
			if len(rules) == 0 {
				return printer.Text("no rules loaded")
			}
			for _, rule := range rules {
				state := "enabled"
				if !rule.Enabled {
					state = "disabled"
				}
				if err := printer.Text("%-32s %4d  %-8s  %s", rule.Name, rule.Priority, state, rule.Description); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func rulesReloadCommand(printer *cli.Printer) *cli.Command {
	var flags gatewayFlags
	return &cli.Command{
		Name:        "reload",
		Summary:     "Reload rules from the gateway's rule directory",
		Description: "Reload rules on the gateway. Exits 1 when any rule file failed to load.",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("reload", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, _ []string, logger *slog.Logger) error {
			client, _, err := flags.connect(logger)
			if err != nil {
				return err
			}
			result, err := client.ReloadRules(ctx)
			if err != nil {
				return err
			}
			if printer.Styled() {
				if err := printer.Text("loaded %d rules", result.Loaded); err != nil {
					return err
				}
				for _, message := range result.Errors {
					if err := printer.Text("  error: %s", message); err != nil {
						return err
					}
				}
			} else if err := printer.JSON(result); err != nil {
				return err
			}
			if len(result.Errors) > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func ruleToggleCommand(printer *cli.Printer, name, summary string, enabled bool) *cli.Command {
	var flags gatewayFlags
	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   fmt.Sprintf("acteon rules %s <rule> [flags]", name),
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one rule name, got %d arguments", len(args))
			}
			client, _, err := flags.connect(logger)
			if err != nil {
				return err
			}
			if err := client.SetRuleEnabled(ctx, args[0], enabled); err != nil {
				return err
			}
			return printer.Text("rule %s %sd", args[0], name)
		},
	}
}
