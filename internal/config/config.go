// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package config loads the server runtime configuration from an optional
// YAML file overlaid with command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/voidops/voidops/internal/command"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/logging"
	"github.com/voidops/voidops/internal/tick"
	"github.com/voidops/voidops/internal/xdg"
)

// CodeInvalidConfig marks configuration that failed validation.
const CodeInvalidConfig = "INVALID_CONFIG"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// DatabaseURLEnv is consulted when no database URL is configured.
const DatabaseURLEnv = "DATABASE_URL"

// RateLimit configures the per-owner command token bucket.
type RateLimit struct {
	Burst     int     `koanf:"burst"`
	PerSecond float64 `koanf:"per_second"`
}

// Config is the server runtime configuration.
type Config struct {
	Store          string    `koanf:"store"`
	DatabaseURL    string    `koanf:"database_url"`
	GameData       string    `koanf:"game_data"`
	TickIntervalMs int64     `koanf:"tick_interval_ms"`
	ListenAddr     string    `koanf:"listen_addr"`
	MetricsAddr    string    `koanf:"metrics_addr"`
	LogFormat      string    `koanf:"log_format"`
	LogLevel       string    `koanf:"log_level"`
	RateLimit      RateLimit `koanf:"rate_limit"`
}

// Default returns the configuration used when neither file nor flags set a key.
func Default() Config {
	return Config{
		Store:          StorePostgres,
		ListenAddr:     ":3000",
		MetricsAddr:    "127.0.0.1:9100",
		LogFormat:      "json",
		LogLevel:       "info",
		RateLimit: RateLimit{
			Burst:     command.DefaultBurst,
			PerSecond: command.DefaultPerSecond,
		},
	}
}

// flagKeys maps flag names to config keys. Flags not listed are not config.
var flagKeys = map[string]string{
	"store":                 "store",
	"database-url":          "database_url",
	"game-data":             "game_data",
	"tick-interval-ms":      "tick_interval_ms",
	"listen-addr":           "listen_addr",
	"metrics-addr":          "metrics_addr",
	"log-format":            "log_format",
	"log-level":             "log_level",
	"rate-limit-burst":      "rate_limit.burst",
	"rate-limit-per-second": "rate_limit.per_second",
}

// BindFlags registers the config flags on fs with their defaults.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "config file (default: $XDG_CONFIG_HOME/voidops/config.yaml when present)")
	fs.String("store", d.Store, "record store: postgres or memory")
	fs.String("database-url", "", "PostgreSQL URL (default: $"+DatabaseURLEnv+")")
	fs.String("game-data", "", "game data YAML (default: $XDG_DATA_HOME/voidops/gamedata.yaml when present, else built-in)")
	fs.Int64("tick-interval-ms", 0, "tick interval in milliseconds (default: the game data physics interval)")
	fs.String("listen-addr", d.ListenAddr, "game listener address (websocket and /health)")
	fs.String("metrics-addr", d.MetricsAddr, "metrics, health and admin address (empty = disabled)")
	fs.String("log-format", d.LogFormat, "log format (json or text)")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
	fs.Int("rate-limit-burst", d.RateLimit.Burst, "commands an owner may issue in a burst")
	fs.Float64("rate-limit-per-second", d.RateLimit.PerSecond, "sustained commands per second per owner")
}

// Load merges the config file named by --config (or the XDG default when it
// exists) with the flags in fs. Flags set explicitly win over the file.
func Load(fs *pflag.FlagSet, getenv func(string) string) (Config, error) {
	k := koanf.New(".")

	path, explicit := "", false
	if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
		path, explicit = f.Value.String(), true
	} else if def, err := xdg.ConfigFile(); err == nil && xdg.Exists(def) {
		path = def
	}
	if path != "" {
		if !xdg.Exists(path) && explicit {
			return Config{}, oops.Code(CodeInvalidConfig).With("path", path).Errorf("config file not found")
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code(CodeInvalidConfig).With("path", path).Wrapf(err, "read config file")
		}
	}

	provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return Config{}, oops.Code(CodeInvalidConfig).Wrapf(err, "read flags")
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code(CodeInvalidConfig).Wrapf(err, "decode config")
	}
	cfg.normalize(getenv)
	return cfg, cfg.Validate()
}

func (c *Config) normalize(getenv func(string) string) {
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.DatabaseURL == "" && getenv != nil {
		c.DatabaseURL = getenv(DatabaseURLEnv)
	}
	if c.GameData == "" {
		if def, err := xdg.GameDataFile(); err == nil && xdg.Exists(def) {
			c.GameData = def
		}
	}
}

// TickInterval returns the configured cadence, falling back to the game
// data's physics interval when none is configured.
func (c Config) TickInterval(cat *gamedata.Catalog) time.Duration {
	ms := c.TickIntervalMs
	if ms == 0 && cat != nil {
		ms = cat.Economy.PhysicsTickIntervalMs
	}
	if ms == 0 {
		ms = gamedata.DefaultTickIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			add("database_url (or %s) is required for the postgres store", DatabaseURLEnv)
		}
	default:
		add("store must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.TickIntervalMs != 0 {
		if err := tick.ValidateInterval(c.TickInterval(nil)); err != nil {
			add("tick_interval_ms: %v", err)
		}
	}
	if c.ListenAddr == "" {
		add("listen_addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		add("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		add("log_level: %v", err)
	}
	if c.RateLimit.Burst < command.MinBurst {
		add("rate_limit.burst must be at least %d", command.MinBurst)
	}
	if c.RateLimit.PerSecond < command.MinPerSecond {
		add("rate_limit.per_second must be at least %v", command.MinPerSecond)
	}
	if len(problems) == 0 {
		return nil
	}
	return oops.Code(CodeInvalidConfig).
		With("problems", problems).
		Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}
