// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/event"
)

// DefaultEventListLimit caps ListByOwner when no limit is given.
const DefaultEventListLimit = 100

// EventLog implements event.Log using PostgreSQL. Appends made inside a
// Transactor transaction commit or roll back with it.
type EventLog struct {
	db DB
}

// NewEventLog creates a new EventLog.
func NewEventLog(db DB) *EventLog {
	return &EventLog{db: db}
}

// Append records an entry.
func (l *EventLog) Append(ctx context.Context, e event.Entry) error {
	_, err := conn(ctx, l.db).Exec(ctx, `
		INSERT INTO event_log (id, event_type, owner_id, drone_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID.String(), e.Kind.LogType(), e.OwnerID.String(), e.DroneID.String(), []byte(e.Payload), e.CreatedAt)
	if err != nil {
		return oops.With("operation", "append event").
			With("event_id", e.ID.String()).
			With("event_kind", string(e.Kind)).
			Wrap(err)
	}
	return nil
}

// ListByOwner returns an owner's most recent entries, newest first.
func (l *EventLog) ListByOwner(ctx context.Context, owner ulid.ULID, limit int) ([]event.Entry, error) {
	if limit <= 0 {
		limit = DefaultEventListLimit
	}
	rows, err := conn(ctx, l.db).Query(ctx, `
		SELECT id, event_type, drone_id, payload, created_at
		FROM event_log WHERE owner_id = $1
		ORDER BY id DESC LIMIT $2
	`, owner.String(), limit)
	if err != nil {
		return nil, oops.With("operation", "list events").With("owner_id", owner.String()).Wrap(err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (event.Entry, error) {
		var (
			e                      event.Entry
			idStr, typ, droneIDStr string
			payload                []byte
		)
		if err := row.Scan(&idStr, &typ, &droneIDStr, &payload, &e.CreatedAt); err != nil {
			return event.Entry{}, err
		}
		kind, ok := event.KindFromLogType(typ)
		if !ok {
			return event.Entry{}, oops.Code("DATA_INTEGRITY").With("event_type", typ).Errorf("unknown event type")
		}
		var err error
		if e.ID, err = ulid.Parse(idStr); err != nil {
			return event.Entry{}, oops.Code("DATA_INTEGRITY").With("event_id", idStr).Wrap(err)
		}
		if e.DroneID, err = ulid.Parse(droneIDStr); err != nil {
			return event.Entry{}, oops.Code("DATA_INTEGRITY").With("drone_id", droneIDStr).Wrap(err)
		}
		e.Kind = kind
		e.OwnerID = owner
		e.Payload = payload
		return e, nil
	})
	if err != nil {
		return nil, oops.With("operation", "scan events").With("owner_id", owner.String()).Wrap(err)
	}
	return entries, nil
}
