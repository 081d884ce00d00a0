// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidops/voidops/internal/event"
	"github.com/voidops/voidops/pkg/errutil"
)

func TestEventLog_Append(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, err := event.NewEntry(ulid.Make(), ulid.Make(), ulid.Make(), event.Offline{DroneName: "P-1"}, at)
	require.NoError(t, err)

	t.Run("inserts with log type", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO event_log`).
			WithArgs(e.ID.String(), "drone_offline", e.OwnerID.String(), e.DroneID.String(), []byte(e.Payload), at).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewEventLog(mock).Append(context.Background(), e))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error carries context", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO event_log`).WillReturnError(errors.New("disk full"))

		err := NewEventLog(mock).Append(context.Background(), e)
		require.Error(t, err)
		errutil.AssertErrorContext(t, err, "event_kind", "drone:offline")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventLog_ListByOwner(t *testing.T) {
	mock := newMock(t)
	owner, drone, id := ulid.Make(), ulid.Make(), ulid.Make()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, event_type, drone_id, payload, created_at\s+FROM event_log WHERE owner_id = \$1`).
		WithArgs(owner.String(), DefaultEventListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "event_type", "drone_id", "payload", "created_at"}).
			AddRow(id.String(), "drone_arrived", drone.String(), []byte(`{"drone_id":"x"}`), at))

	got, err := NewEventLog(mock).ListByOwner(context.Background(), owner, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, event.KindArrived, got[0].Kind)
	assert.Equal(t, owner, got[0].OwnerID)
	assert.Equal(t, drone, got[0].DroneID)
	assert.JSONEq(t, `{"drone_id":"x"}`, string(got[0].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}
