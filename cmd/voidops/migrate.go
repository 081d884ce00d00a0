// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/voidops/voidops/internal/config"
	"github.com/voidops/voidops/internal/store"
)

// schemaMigrator is the part of store.Migrator the migrate commands use.
type schemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Status() (applied, pending []uint, err error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (schemaMigrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back and inspect the PostgreSQL schema migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m schemaMigrator) error { return runUp(cmd, m) })
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m schemaMigrator) error { return runUp(cmd, m) })
		},
	})

	var steps int
	var all bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Long: `Roll back the last --steps migrations, or every migration with --all.
Rolling back everything drops all game data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m schemaMigrator) error { return runDown(cmd, m, steps, all) })
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	down.Flags().BoolVar(&all, "all", false, "roll back every migration")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m schemaMigrator) error { return runStatus(cmd, m) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m schemaMigrator) error { return runVersion(cmd, m) })
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Long: `Record VERSION as the applied schema version without running anything.
Use only after repairing a migration that failed midway.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(cmd, func(m schemaMigrator) error { return runForce(cmd, m, v) })
		},
	})

	return cmd
}

// withMigrator loads the config, opens a migrator and closes it after fn.
func withMigrator(cmd *cobra.Command, fn func(m schemaMigrator) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store != config.StorePostgres {
		return oops.Code(config.CodeInvalidConfig).With("store", cfg.Store).Errorf("migrations need the postgres store")
	}

	m, err := newMigrator(cfg.DatabaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("closing migrator", "error", closeErr)
		}
	}()
	return fn(m)
}

func runUp(cmd *cobra.Command, m schemaMigrator) error {
	cmd.Println("Running migrations...")
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	v, _, err := m.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Migrations completed successfully (version %d)\n", v)
	return nil
}

func runDown(cmd *cobra.Command, m schemaMigrator, steps int, all bool) error {
	if all {
		cmd.Println("Rolling back all migrations...")
		if err := m.Down(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "roll back all").Wrap(err)
		}
		cmd.Println("All migrations rolled back")
		return nil
	}
	if steps < 1 {
		return oops.Code("INVALID_STEPS").With("steps", steps).Errorf("--steps must be at least 1")
	}
	if err := m.Steps(-steps); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "roll back").With("steps", steps).Wrap(err)
	}
	v, _, err := m.Version()
	if err != nil {
		return err
	}
	cmd.Printf("Rolled back %d migration(s), now at version %d\n", steps, v)
	return nil
}

func runStatus(cmd *cobra.Command, m schemaMigrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	applied, pending, err := m.Status()
	if err != nil {
		return err
	}
	cmd.Printf("Current version: %d", v)
	if dirty {
		cmd.Print(" (dirty)")
	}
	cmd.Println()
	for _, a := range applied {
		cmd.Printf("  [x] %s\n", migrationLabel(a))
	}
	for _, p := range pending {
		cmd.Printf("  [ ] %s\n", migrationLabel(p))
	}
	if dirty {
		cmd.Println("A migration failed midway. Repair the schema, then run 'voidops migrate force VERSION'.")
	}
	return nil
}

func migrationLabel(v uint) string {
	name, err := store.MigrationName(v)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", v)
	}
	return name
}

func runVersion(cmd *cobra.Command, m schemaMigrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if dirty {
		cmd.Printf("%d (dirty)\n", v)
		return nil
	}
	cmd.Printf("%d\n", v)
	return nil
}

func runForce(cmd *cobra.Command, m schemaMigrator, v int) error {
	if err := m.Force(v); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "force version").Wrap(err)
	}
	cmd.Printf("Forced schema version to %d\n", v)
	return nil
}

// parseForceVersion reads the leading integer of s.
func parseForceVersion(s string) (int, error) {
	var v int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &v); err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer")
	}
	return v, nil
}
