// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/acteon/acteon-go/cmd/acteon/cli"
	"github.com/acteon/acteon-go/lib/config"
	"github.com/acteon/acteon-go/lib/gateway"
)

// gatewayFlags are the connection flags every gateway command accepts.
// Flags win over the config file and ACTEON_* variables.
type gatewayFlags struct {
	configPath string
	url        string
	apiKey     string
	timeout    time.Duration
	verbose    bool
}

func (flags *gatewayFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&flags.configPath, "config", "", "config file (default $"+config.EnvConfig+")")
	flagSet.StringVar(&flags.url, "url", "", "gateway URL (overrides config)")
	flagSet.StringVar(&flags.apiKey, "api-key", "", "API key sent as a bearer token (overrides config)")
	flagSet.DurationVar(&flags.timeout, "timeout", 0, "request timeout (overrides config)")
	flagSet.BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")
}

// load resolves the effective configuration.
func (flags *gatewayFlags) load() (*config.Config, error) {
	cli.SetVerbose(flags.verbose)

	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if flags.url != "" {
		cfg.Gateway.URL = flags.url
	}
	if flags.apiKey != "" {
		cfg.Gateway.APIKey = flags.apiKey
	}
	if flags.timeout != 0 {
		cfg.Gateway.Timeout = flags.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// connect loads configuration and builds a gateway client.
func (flags *gatewayFlags) connect(logger *slog.Logger) (*gateway.Client, *config.Config, error) {
	cfg, err := flags.load()
	if err != nil {
		return nil, nil, err
	}
	transport, err := gateway.NewHTTPTransport(gateway.HTTPTransportConfig{
		BaseURL:   cfg.Gateway.URL,
		APIKey:    cfg.Gateway.APIKey,
		Timeout:   cfg.Gateway.Timeout,
		RateLimit: cfg.Gateway.RateLimit,
		RateBurst: cfg.Gateway.RateBurst,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("using gateway", "url", cfg.Gateway.URL, "environment", cfg.Environment)
	return gateway.New(transport, logger), cfg, nil
}

// readInput reads a file argument; "-" means stdin.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// endedCleanly reports whether err just means the stream is over: the
// gateway closed it, or the user interrupted.
func endedCleanly(ctx context.Context, err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, gateway.ErrClosed) || ctx.Err() != nil
}
