// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/config"
	"github.com/voidops/voidops/internal/event"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/fleet/memory"
	"github.com/voidops/voidops/internal/fleet/postgres"
	"github.com/voidops/voidops/internal/observability"
	"github.com/voidops/voidops/internal/store"
)

// backend is the record store the simulation runs against.
type backend struct {
	Drones     fleet.DroneRepository
	Accounts   fleet.AccountRepository
	Transactor fleet.Transactor
	Events     event.Log
	Ready      observability.ReadinessChecker
	close      func()
}

// Close releases the store's connections.
func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// backendOptions tunes openBackend.
type backendOptions struct {
	// AutoMigrate applies pending migrations before the pool is used.
	AutoMigrate bool
}

// openBackend connects the store named by cfg.Store.
func openBackend(ctx context.Context, cfg config.Config, opts backendOptions, logger *slog.Logger) (*backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store; all state is lost on exit")
		s := memory.NewStore()
		return &backend{
			Drones:     s.Drones(),
			Accounts:   s.Accounts(),
			Transactor: s,
			Events:     event.NewMemoryLog(),
			Ready:      func() bool { return true },
		}, nil

	case config.StorePostgres:
		if opts.AutoMigrate {
			if err := migrateUp(cfg.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}
		pool, err := store.Open(ctx, cfg.DatabaseURL, store.PoolOptions{})
		if err != nil {
			return nil, oops.With("operation", "connect to database").Wrap(err)
		}
		return &backend{
			Drones:     postgres.NewDroneRepository(pool),
			Accounts:   postgres.NewAccountRepository(pool),
			Transactor: postgres.NewTransactor(pool),
			Events:     postgres.NewEventLog(pool),
			Ready:      store.ReadinessCheck(pool),
			close:      pool.Close,
		}, nil

	default:
		return nil, oops.Code(config.CodeInvalidConfig).With("store", cfg.Store).Errorf("unknown store")
	}
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "open migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("closing migrator", "error", closeErr)
		}
	}()
	if err := m.Up(); err != nil {
		return oops.With("operation", "run migrations").Wrap(err)
	}
	v, _, err := m.Version()
	if err == nil {
		logger.Info("schema up to date", "version", v)
	}
	return nil
}
