// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voidops/voidops/internal/config"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/logging"
)

// NewRootCmd creates the root command for the VoidOps CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voidops",
		Short: "VoidOps - drone fleet simulation server",
		Long: `VoidOps runs a persistent drone fleet simulation: drones travel between
locations, mine resources, sell cargo and refuel while a periodic tick
resolves every task that has come due.`,
		SilenceUsage: true,
	}

	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewTickCmd())

	return cmd
}

// loadConfig reads the configuration and installs the default logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.Flags(), os.Getenv)
	if err != nil {
		return config.Config{}, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.SetDefault(logging.Options{
		Service: "voidops",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}

// loadCatalog reads the configured game data, or the built-in catalog.
func loadCatalog(cfg config.Config) (*gamedata.Catalog, error) {
	if cfg.GameData == "" {
		return gamedata.Default()
	}
	return gamedata.Load(cfg.GameData)
}
