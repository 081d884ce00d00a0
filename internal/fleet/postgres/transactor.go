// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default retry policy for transactions aborted by the server.
const (
	DefaultMaxRetries = 4
	DefaultRetryBase  = 20 * time.Millisecond
)

// Transactor implements fleet.Transactor. It stores the active pgx.Tx in
// context so repository calls made with that context join it. Transactions
// that fail with a serialization failure or deadlock are retried.
type Transactor struct {
	db         DB
	maxRetries uint64
	base       time.Duration
}

// NewTransactor creates a Transactor backed by db.
func NewTransactor(db DB) *Transactor {
	return &Transactor{db: db, maxRetries: DefaultMaxRetries, base: DefaultRetryBase}
}

// WithRetry overrides the retry policy.
func (t *Transactor) WithRetry(maxRetries uint64, base time.Duration) *Transactor {
	t.maxRetries = maxRetries
	t.base = base
	return t
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil, the transaction is committed. Otherwise it is rolled back.
// Calls made inside an existing transaction join it.
func (t *Transactor) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	backoff := retry.WithMaxRetries(t.maxRetries, retry.NewExponential(t.base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := t.once(ctx, fn)
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (t *Transactor) once(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}
