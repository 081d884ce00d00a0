// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/gamedata"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// Well-known seed IDs. Fixed IDs make a second seed collide instead of duplicating.
var (
	seedOwnerID = ulid.MustParse("01JVD0PS000000000000000000")
	seedDroneID = ulid.MustParse("01JVD0PS000000000000000001")
)

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout     time.Duration
	accountName string
	droneType   string
	droneName   string
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the demo account and its first drone",
		Long: `Creates a demo account with the game data's starting balance and one
drone docked at the spawn location. This command is idempotent - it will
not create duplicates if run multiple times.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().StringVar(&cfg.accountName, "account-name", "Demo Operator", "demo account name")
	cmd.Flags().StringVar(&cfg.droneType, "drone-type", "", "drone type of the starter drone (default: the game data's starter drone)")
	cmd.Flags().StringVar(&cfg.droneName, "drone-name", "", "name of the starter drone (default: \"<type name>-1\")")

	return cmd
}

func runSeed(cmd *cobra.Command, scfg *seedConfig) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return oops.With("operation", "load game data").Wrap(err)
	}

	// cmd.Context() carries SIGINT/SIGTERM cancellation.
	ctx, cancel := context.WithTimeout(cmd.Context(), scfg.timeout)
	defer cancel()

	b, err := openBackend(ctx, cfg, backendOptions{AutoMigrate: true}, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	scfg.applyDefaults(cat)
	res, err := seedDemo(ctx, b, cat, scfg, time.Now().UTC(), logger)
	if err != nil {
		return err
	}
	if res.created {
		cmd.Printf("Created account %q (%s) with %.2f credits\n", scfg.accountName, seedOwnerID, cat.Economy.StartingBalance)
		cmd.Printf("Created drone %q (%s) at %s\n", scfg.droneName, seedDroneID, cat.Economy.SpawnLocation)
	} else {
		cmd.Println("Demo account already exists, skipping seed")
	}
	cmd.Printf("Connect with header X-Owner-ID: %s\n", seedOwnerID)
	return nil
}

// applyDefaults fills the starter drone from the catalog.
func (c *seedConfig) applyDefaults(cat *gamedata.Catalog) {
	if c.droneType == "" {
		c.droneType = cat.Economy.StarterDrone
	}
	if c.droneName == "" {
		name := c.droneType
		if spec, ok := cat.Spec(c.droneType); ok && spec.Name != "" {
			name = spec.Name
		}
		c.droneName = name + "-1"
	}
}

type seedResult struct {
	created bool
}

// seedDemo creates the demo account and drone in one transaction.
func seedDemo(ctx context.Context, b *backend, cat *gamedata.Catalog, scfg *seedConfig, now time.Time, logger *slog.Logger) (seedResult, error) {
	drone, err := fleet.NewDrone(cat, seedOwnerID, scfg.droneType, scfg.droneName, now)
	if err != nil {
		return seedResult{}, oops.Code("SEED_FAILED").With("drone_type", scfg.droneType).Wrap(err)
	}
	drone.ID = seedDroneID

	account := &fleet.Account{
		ID:        seedOwnerID,
		Name:      scfg.accountName,
		Credits:   cat.Economy.StartingBalance,
		CreatedAt: now,
	}

	err = b.Transactor.InTransaction(ctx, func(ctx context.Context) error {
		if _, getErr := b.Accounts.Get(ctx, seedOwnerID); getErr == nil {
			return errAlreadySeeded
		} else if !errors.Is(getErr, fleet.ErrNotFound) {
			return getErr
		}
		if err := b.Accounts.Create(ctx, account); err != nil {
			return err
		}
		return b.Drones.Create(ctx, drone)
	})
	switch {
	case err == nil:
		logger.Info("seeded demo account", "owner_id", seedOwnerID, "drone_id", seedDroneID)
		return seedResult{created: true}, nil
	case errors.Is(err, errAlreadySeeded) || isUniqueViolation(err):
		verifySeed(ctx, b, scfg, logger)
		return seedResult{}, nil
	default:
		return seedResult{}, oops.Code("SEED_FAILED").With("operation", "create demo account").Wrap(err)
	}
}

var errAlreadySeeded = errors.New("already seeded")

// isUniqueViolation reports a concurrent seed that won the insert.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// verifySeed warns when the existing demo records differ from what seed would create.
func verifySeed(ctx context.Context, b *backend, scfg *seedConfig, logger *slog.Logger) {
	existing, err := b.Accounts.Get(ctx, seedOwnerID)
	if err != nil {
		logger.Warn("could not verify existing seed account", "owner_id", seedOwnerID, "error", err)
		return
	}
	if existing.Name != scfg.accountName {
		logger.Warn("seed account name mismatch", "owner_id", seedOwnerID, "expected", scfg.accountName, "actual", existing.Name)
	}
	d, err := b.Drones.Get(ctx, seedDroneID)
	if err != nil {
		logger.Warn("seed drone missing", "drone_id", seedDroneID, "error", err)
		return
	}
	if d.TypeID != scfg.droneType {
		logger.Warn("seed drone type mismatch", "drone_id", seedDroneID, "expected", scfg.droneType, "actual", d.TypeID)
	}
	logger.Info("demo account already seeded", "owner_id", seedOwnerID)
}
