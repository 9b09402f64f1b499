// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the variable [Load] reads the config path from.
const EnvConfig = "ACTEON_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local gateways.
	Development Environment = "development"
	// Staging is for pre-production gateways.
	Staging Environment = "staging"
	// Production is for production gateways.
	Production Environment = "production"
)

// Config is the client configuration.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// Gateway configures how to reach the gateway.
	Gateway GatewayConfig `yaml:"gateway"`

	// Watch configures resuming subscriptions.
	Watch WatchConfig `yaml:"watch"`

	// Per-environment overrides, applied after the base values.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains the sections an environment may override.
// Zero fields leave the base value alone.
type ConfigOverrides struct {
	Gateway *GatewayConfig `yaml:"gateway,omitempty"`
	Watch   *WatchConfig   `yaml:"watch,omitempty"`
}

// GatewayConfig configures the gateway connection.
type GatewayConfig struct {
	// URL is the gateway root.
	// Default: http://localhost:8080
	URL string `yaml:"url" env:"ACTEON_URL"`

	// APIKey is sent as a bearer token when set.
	APIKey string `yaml:"api_key" env:"ACTEON_API_KEY"`

	// Timeout bounds buffered calls and the wait for stream headers.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" env:"ACTEON_TIMEOUT"`

	// RateLimit caps requests per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the limiter burst size.
	RateBurst int `yaml:"rate_burst"`
}

// WatchConfig configures reconnecting subscriptions.
type WatchConfig struct {
	// Checkpoint is the file resume tokens are kept in. Empty keeps
	// them in memory only.
	Checkpoint string `yaml:"checkpoint" env:"ACTEON_CHECKPOINT"`

	// InitialInterval is the first reconnect delay.
	// Default: 500ms
	InitialInterval time.Duration `yaml:"initial_interval"`

	// MaxInterval caps the reconnect delay.
	// Default: 30s
	MaxInterval time.Duration `yaml:"max_interval"`

	// Multiplier grows the delay after each failed attempt.
	// Default: 2.0
	Multiplier float64 `yaml:"multiplier"`

	// RandomizationFactor jitters each delay by up to this fraction.
	// Default: 0.5
	RandomizationFactor float64 `yaml:"randomization_factor"`

	// MaxAttempts bounds consecutive failed connections. Zero retries
	// forever.
	MaxAttempts int `yaml:"max_attempts"`
}

// Default returns the configuration used before any file or
// environment variable is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Gateway: GatewayConfig{
			URL:     "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		Watch: WatchConfig{
			InitialInterval:     500 * time.Millisecond,
			MaxInterval:         30 * time.Second,
			Multiplier:          2.0,
			RandomizationFactor: 0.5,
		},
	}
}

// Load loads the file named by ACTEON_CONFIG, or only the defaults
// and environment overrides when it is unset.
func Load() (*Config, error) {
	return load(os.Getenv(EnvConfig), nil)
}

// LoadFile loads configuration from path.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config: empty config path")
	}
	return load(path, nil)
}

// load builds a Config from defaults, the file at path (if any),
// its environment section, and environment variables. A nil environ
// reads the process environment.
func load(path string, environ map[string]string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnvironmentOverrides()

	options := env.Options{Environment: environ}
	for _, section := range []any{&cfg.Gateway, &cfg.Watch} {
		if err := env.ParseWithOptions(section, options); err != nil {
			return nil, fmt.Errorf("config: environment overrides: %w", err)
		}
	}

	cfg.expandVariables(environ)
	return cfg, nil
}

// loadFile merges one configuration file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if gateway := overrides.Gateway; gateway != nil {
		if gateway.URL != "" {
			c.Gateway.URL = gateway.URL
		}
		if gateway.APIKey != "" {
			c.Gateway.APIKey = gateway.APIKey
		}
		if gateway.Timeout != 0 {
			c.Gateway.Timeout = gateway.Timeout
		}
		if gateway.RateLimit != 0 {
			c.Gateway.RateLimit = gateway.RateLimit
		}
		if gateway.RateBurst != 0 {
			c.Gateway.RateBurst = gateway.RateBurst
		}
	}

	if watch := overrides.Watch; watch != nil {
		if watch.Checkpoint != "" {
			c.Watch.Checkpoint = watch.Checkpoint
		}
		if watch.InitialInterval != 0 {
			c.Watch.InitialInterval = watch.InitialInterval
		}
		if watch.MaxInterval != 0 {
			c.Watch.MaxInterval = watch.MaxInterval
		}
		if watch.Multiplier != 0 {
			c.Watch.Multiplier = watch.Multiplier
		}
		if watch.RandomizationFactor != 0 {
			c.Watch.RandomizationFactor = watch.RandomizationFactor
		}
		if watch.MaxAttempts != 0 {
			c.Watch.MaxAttempts = watch.MaxAttempts
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables(environ map[string]string) {
	lookup := func(name string) string {
		if environ != nil {
			return environ[name]
		}
		return os.Getenv(name)
	}

	vars := map[string]string{"HOME": lookup("HOME")}
	stateHome := lookup("XDG_STATE_HOME")
	if stateHome == "" && vars["HOME"] != "" {
		stateHome = filepath.Join(vars["HOME"], ".local", "state")
	}
	vars["XDG_STATE_HOME"] = stateHome

	c.Watch.Checkpoint = expandVars(c.Watch.Checkpoint, vars, lookup)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. vars are
// consulted before lookup.
func expandVars(s string, vars map[string]string, lookup func(string) string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if lookup != nil {
			if value := lookup(name); value != "" {
				return value
			}
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Gateway.URL == "" {
		errs = append(errs, errors.New("gateway.url is required"))
	} else if parsed, err := url.Parse(c.Gateway.URL); err != nil {
		errs = append(errs, fmt.Errorf("gateway.url: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("gateway.url must use http or https, got %q", c.Gateway.URL))
	} else if parsed.Host == "" {
		errs = append(errs, fmt.Errorf("gateway.url %q has no host", c.Gateway.URL))
	}

	if c.Gateway.Timeout < 0 {
		errs = append(errs, errors.New("gateway.timeout must not be negative"))
	}
	if c.Gateway.RateLimit < 0 {
		errs = append(errs, errors.New("gateway.rate_limit must not be negative"))
	}
	if c.Gateway.RateBurst < 0 {
		errs = append(errs, errors.New("gateway.rate_burst must not be negative"))
	}

	if c.Watch.InitialInterval < 0 || c.Watch.MaxInterval < 0 {
		errs = append(errs, errors.New("watch intervals must not be negative"))
	}
	if c.Watch.MaxInterval > 0 && c.Watch.MaxInterval < c.Watch.InitialInterval {
		errs = append(errs, errors.New("watch.max_interval is below watch.initial_interval"))
	}
	if c.Watch.Multiplier < 0 {
		errs = append(errs, errors.New("watch.multiplier must not be negative"))
	}
	if c.Watch.RandomizationFactor < 0 || c.Watch.RandomizationFactor >= 1 {
		errs = append(errs, errors.New("watch.randomization_factor must be in [0, 1)"))
	}
	if c.Watch.MaxAttempts < 0 {
		errs = append(errs, errors.New("watch.max_attempts must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
