// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package main

import (
	"maps"
	"slices"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/voidops/voidops/internal/event"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/tick"
)

// NewTickCmd creates the tick subcommand.
func NewTickCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one tick sweep and exit",
		Long: `Resolve every drone whose task is due, once, without starting the server.
Events are recorded in the event log but not pushed to live clients.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cat, err := loadCatalog(cfg)
			if err != nil {
				return oops.With("operation", "load game data").Wrap(err)
			}

			now := time.Now().UTC()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return oops.Code("INVALID_TIME").With("at", at).Wrapf(err, "--at must be RFC 3339")
				}
			}

			b, err := openBackend(cmd.Context(), cfg, backendOptions{}, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			engine := tick.NewEngine(tick.EngineConfig{
				Drones:     b.Drones,
				Transactor: b.Transactor,
				Log:        b.Events,
				Notifier:   event.Discard,
				Catalog:    cat,
				Random:     fleet.SystemRandom,
				Logger:     logger,
			})
			sum, err := engine.Tick(cmd.Context(), now)
			if err != nil {
				return err
			}
			cmd.Printf("due=%d resolved=%d failed=%d\n", sum.Due, sum.Resolved, sum.Failed)
			for _, kind := range slices.Sorted(maps.Keys(sum.ByKind)) {
				if n := sum.ByKind[kind]; n > 0 {
					cmd.Printf("  %s: %d\n", kind, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "simulation time to tick at, RFC 3339 (default: now)")

	return cmd
}
