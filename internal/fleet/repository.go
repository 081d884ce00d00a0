// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package fleet

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// DroneRepository manages drone persistence.
type DroneRepository interface {
	// Get retrieves a drone by ID.
	Get(ctx context.Context, id ulid.ULID) (*Drone, error)

	// GetForUpdate retrieves a drone and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id ulid.ULID) (*Drone, error)

	// ListByOwner returns an owner's drones, oldest first.
	ListByOwner(ctx context.Context, owner ulid.ULID) ([]*Drone, error)

	// ListDue returns the ids of drones with a task deadline at or before now.
	ListDue(ctx context.Context, now time.Time) ([]ulid.ULID, error)

	// Create persists a new drone and its inventory.
	Create(ctx context.Context, d *Drone) error

	// Save writes the drone and replaces its inventory. It fails with
	// VERSION_CONFLICT if the drone changed since it was read, and bumps
	// d.Version on success.
	Save(ctx context.Context, d *Drone) error
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// Get retrieves an account by ID.
	Get(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetForUpdate retrieves an account and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id ulid.ULID) (*Account, error)

	// Create persists a new account.
	Create(ctx context.Context, a *Account) error

	// AdjustCredits adds delta to the balance and returns the new balance.
	AdjustCredits(ctx context.Context, id ulid.ULID, delta float64) (float64, error)
}

// Transactor runs fn inside a transaction. Repository calls made with the
// context passed to fn participate in it.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
