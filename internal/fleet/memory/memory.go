// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package memory is an in-process record store for drones and accounts.
// Transactions are serialised by a single lock and roll back by restoring
// a snapshot.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/fleet"
)

type txMarker struct{}

// Store holds drones and accounts in memory. It implements
// fleet.DroneRepository, fleet.AccountRepository and fleet.Transactor.
type Store struct {
	mu       sync.Mutex
	drones   map[ulid.ULID]*fleet.Drone
	accounts map[ulid.ULID]*fleet.Account
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		drones:   make(map[ulid.ULID]*fleet.Drone),
		accounts: make(map[ulid.ULID]*fleet.Account),
	}
}

// Drones returns the store as a fleet.DroneRepository.
func (s *Store) Drones() fleet.DroneRepository { return droneRepo{s} }

// Accounts returns the store as a fleet.AccountRepository.
func (s *Store) Accounts() fleet.AccountRepository { return accountRepo{s} }

// InTransaction runs fn with the store locked. If fn fails, every change it
// made is discarded. Nested calls join the outer transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	drones := make(map[ulid.ULID]*fleet.Drone, len(s.drones))
	for id, d := range s.drones {
		drones[id] = d.Clone()
	}
	accounts := make(map[ulid.ULID]*fleet.Account, len(s.accounts))
	for id, a := range s.accounts {
		c := *a
		accounts[id] = &c
	}

	if err := fn(context.WithValue(ctx, txMarker{}, s)); err != nil {
		s.drones, s.accounts = drones, accounts
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txMarker{}).(*Store)
	return owner == s
}

// lock acquires the store lock unless the caller already holds it through
// InTransaction.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type droneRepo struct{ s *Store }

func (r droneRepo) Get(ctx context.Context, id ulid.ULID) (*fleet.Drone, error) {
	defer r.s.lock(ctx)()
	d, ok := r.s.drones[id]
	if !ok {
		return nil, oops.Code(fleet.CodeDroneNotFound).With("drone_id", id.String()).Wrap(fleet.ErrNotFound)
	}
	return d.Clone(), nil
}

func (r droneRepo) GetForUpdate(ctx context.Context, id ulid.ULID) (*fleet.Drone, error) {
	return r.Get(ctx, id)
}

func (r droneRepo) ListByOwner(ctx context.Context, owner ulid.ULID) ([]*fleet.Drone, error) {
	defer r.s.lock(ctx)()
	var out []*fleet.Drone
	for _, d := range r.s.drones {
		if d.OwnerID == owner {
			out = append(out, d.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *fleet.Drone) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return a.ID.Compare(b.ID)
	})
	return out, nil
}

func (r droneRepo) ListDue(ctx context.Context, now time.Time) ([]ulid.ULID, error) {
	defer r.s.lock(ctx)()
	var out []ulid.ULID
	for _, id := range slices.SortedFunc(maps.Keys(r.s.drones), ulid.ULID.Compare) {
		if fleet.Due(r.s.drones[id].Task, now) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r droneRepo) Create(ctx context.Context, d *fleet.Drone) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.drones[d.ID]; exists {
		return oops.With("operation", "create drone").With("drone_id", d.ID.String()).Errorf("drone already exists")
	}
	c := d.Clone()
	c.Version = 1
	r.s.drones[d.ID] = c
	d.Version = 1
	return nil
}

func (r droneRepo) Save(ctx context.Context, d *fleet.Drone) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.drones[d.ID]
	if !ok {
		return oops.Code(fleet.CodeDroneNotFound).With("drone_id", d.ID.String()).Wrap(fleet.ErrNotFound)
	}
	if cur.Version != d.Version {
		return oops.Code(fleet.CodeConflict).
			With("drone_id", d.ID.String()).
			With("version", d.Version).
			Errorf("drone modified concurrently")
	}
	d.Version++
	r.s.drones[d.ID] = d.Clone()
	return nil
}

type accountRepo struct{ s *Store }

func (r accountRepo) Get(ctx context.Context, id ulid.ULID) (*fleet.Account, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, oops.Code(fleet.CodeAccountNotFound).With("account_id", id.String()).Wrap(fleet.ErrNotFound)
	}
	c := *a
	return &c, nil
}

func (r accountRepo) GetForUpdate(ctx context.Context, id ulid.ULID) (*fleet.Account, error) {
	return r.Get(ctx, id)
}

func (r accountRepo) Create(ctx context.Context, a *fleet.Account) error {
	defer r.s.lock(ctx)()
	if _, exists := r.s.accounts[a.ID]; exists {
		return oops.With("operation", "create account").With("account_id", a.ID.String()).Errorf("account already exists")
	}
	c := *a
	r.s.accounts[a.ID] = &c
	return nil
}

func (r accountRepo) AdjustCredits(ctx context.Context, id ulid.ULID, delta float64) (float64, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.accounts[id]
	if !ok {
		return 0, oops.Code(fleet.CodeAccountNotFound).With("account_id", id.String()).Wrap(fleet.ErrNotFound)
	}
	a.Credits += delta
	return a.Credits, nil
}
