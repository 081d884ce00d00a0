// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/fleet"
)

// AccountRepository implements fleet.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Get retrieves an account by ID.
func (r *AccountRepository) Get(ctx context.Context, id ulid.ULID) (*fleet.Account, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate retrieves an account and locks its row for the surrounding transaction.
func (r *AccountRepository) GetForUpdate(ctx context.Context, id ulid.ULID) (*fleet.Account, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *AccountRepository) get(ctx context.Context, id ulid.ULID, lock string) (*fleet.Account, error) {
	a := &fleet.Account{ID: id}
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT name, credits, created_at FROM accounts WHERE id = $1`+lock, id.String(),
	).Scan(&a.Name, &a.Credits, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(fleet.CodeAccountNotFound).With("account_id", id.String()).Wrap(fleet.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get account").With("account_id", id.String()).Wrap(err)
	}
	return a, nil
}

// Create persists a new account.
func (r *AccountRepository) Create(ctx context.Context, a *fleet.Account) error {
	_, err := conn(ctx, r.db).Exec(ctx,
		`INSERT INTO accounts (id, name, credits, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID.String(), a.Name, a.Credits, a.CreatedAt)
	if err != nil {
		return oops.With("operation", "create account").With("account_id", a.ID.String()).Wrap(err)
	}
	return nil
}

// AdjustCredits adds delta to the balance and returns the new balance.
func (r *AccountRepository) AdjustCredits(ctx context.Context, id ulid.ULID, delta float64) (float64, error) {
	var balance float64
	err := conn(ctx, r.db).QueryRow(ctx,
		`UPDATE accounts SET credits = credits + $2 WHERE id = $1 RETURNING credits`,
		id.String(), delta,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, oops.Code(fleet.CodeAccountNotFound).With("account_id", id.String()).Wrap(fleet.ErrNotFound)
	}
	if err != nil {
		return 0, oops.With("operation", "adjust credits").With("account_id", id.String()).Wrap(err)
	}
	return balance, nil
}
