// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidops/voidops/internal/dispatch"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/fleet/fleettest"
	"github.com/voidops/voidops/internal/fleet/memory"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/travel"
	"github.com/voidops/voidops/pkg/errutil"
)

type harness struct {
	store *memory.Store
	clock *fleettest.Clock
	svc   *dispatch.Service
	cat   *gamedata.Catalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := memory.NewStore()
	clock := fleettest.NewClock(fleettest.Epoch)
	cat := fleettest.Catalog()
	return &harness{
		store: store,
		clock: clock,
		cat:   cat,
		svc: dispatch.NewService(dispatch.ServiceConfig{
			Drones:     store.Drones(),
			Transactor: store,
			Catalog:    cat,
			Clock:      clock,
		}),
	}
}

// seed stores a drone of typeID docked at location with the given task.
func (h *harness) seed(t *testing.T, typeID, location string, task fleet.Task) *fleet.Drone {
	t.Helper()
	d, err := fleet.NewDrone(h.cat, ulid.Make(), typeID, "", fleettest.Epoch)
	require.NoError(t, err)
	loc, ok := h.cat.Location(location)
	require.True(t, ok)
	d.LocationID = location
	d.Position = travel.PointOf(loc.Coordinates)
	d.Task = task
	require.NoError(t, h.store.Drones().Create(context.Background(), d))
	return d
}

func (h *harness) get(t *testing.T, id ulid.ULID) *fleet.Drone {
	t.Helper()
	d, err := h.store.Drones().Get(context.Background(), id)
	require.NoError(t, err)
	return d
}

func TestDispatchTravel_FullFuel(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "hub", fleet.Idle{})

	got, err := h.svc.DispatchTravel(context.Background(), d.ID, "depot")
	require.NoError(t, err)

	task, ok := got.Task.(fleet.Travelling)
	require.True(t, ok)
	assert.Equal(t, "depot", task.Destination)
	assert.Equal(t, travel.Point{}, task.Origin)
	assert.Equal(t, fleettest.Epoch, task.StartedAt)
	assert.Equal(t, fleettest.Epoch.Add(30*time.Minute), task.EtaAt, "50 km at 100 km/h")
	assert.InDelta(t, 10, got.FuelL, 1e-9, "50 km at 0.2 L/km")
	assert.Equal(t, "hub", got.LocationID, "location is kept until arrival")

	assert.Equal(t, got, h.get(t, d.ID), "result is persisted")
}

func TestDispatchTravel_InsufficientFuelSchedulesRunout(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "hub", fleet.Idle{})

	got, err := h.svc.DispatchTravel(context.Background(), d.ID, "rock")
	require.NoError(t, err, "insufficient fuel is not a dispatch failure")

	task := got.Task.(fleet.Travelling)
	assert.Equal(t, fleettest.Epoch.Add(time.Hour), task.EtaAt, "20 L of 100 L covers 20% of a 5 h route")
	assert.Zero(t, got.FuelL)
}

func TestDispatchTravel_SubSecondStart(t *testing.T) {
	h := newHarness(t)
	h.clock.Set(fleettest.Epoch.Add(700 * time.Millisecond))
	d := h.seed(t, "probe", "hub", fleet.Idle{})

	got, err := h.svc.DispatchTravel(context.Background(), d.ID, "depot")
	require.NoError(t, err)

	task := got.Task.(fleet.Travelling)
	assert.Equal(t, fleettest.Epoch, task.StartedAt, "start is floored to the second")
	assert.Equal(t, fleettest.Epoch.Add(30*time.Minute), task.EtaAt)
}

func TestDispatchTravel_ZeroLengthRouteTakesOneSecond(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "hub", fleet.Idle{})
	d.LocationID = gamedata.DeepSpace
	require.NoError(t, h.store.Drones().Save(context.Background(), d))

	got, err := h.svc.DispatchTravel(context.Background(), d.ID, "hub")
	require.NoError(t, err)
	assert.Equal(t, fleettest.Epoch.Add(time.Second), got.Task.(fleet.Travelling).EtaAt)
}

func TestDispatchTravel_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		typeID string
		at     string
		task   fleet.Task
		dest   string
		code   string
	}{
		{"busy mining", "probe", "rock", fleet.Mining{StartedAt: fleettest.Epoch, EtaAt: fleettest.Epoch.Add(time.Minute)}, "hub", fleet.CodeWrongState},
		{"offline", "probe", "hub", fleet.Offline{}, "rock", fleet.CodeWrongState},
		{"unknown destination", "probe", "hub", fleet.Idle{}, "narnia", fleet.CodeUnknownDestination},
		{"already there", "probe", "hub", fleet.Idle{}, "hub", fleet.CodeAlreadyAtDestination},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			d := h.seed(t, tt.typeID, tt.at, tt.task)

			_, err := h.svc.DispatchTravel(context.Background(), d.ID, tt.dest)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
			assert.True(t, fleet.IsValidation(err))

			assert.Equal(t, d, h.get(t, d.ID), "rejected commands change nothing")
		})
	}
}

func TestDispatchTravel_WrongStateNamesStatus(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "hub", fleet.Offline{})

	_, err := h.svc.DispatchTravel(context.Background(), d.ID, "rock")
	errutil.AssertErrorContext(t, err, "status", "offline")
}

func TestDispatchTravel_NotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.DispatchTravel(context.Background(), ulid.Make(), "rock")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, fleet.CodeDroneNotFound)
}

func TestDispatchTravel_UnknownDroneTypeIsIntegrityFault(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "hub", fleet.Idle{})
	delete(h.cat.Drones, "probe")

	_, err := h.svc.DispatchTravel(context.Background(), d.ID, "rock")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, fleet.CodeDataIntegrity)
	assert.False(t, fleet.IsValidation(err))
}

func TestDispatchMine(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "rock", fleet.Idle{})

	got, err := h.svc.DispatchMine(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, fleet.Mining{StartedAt: fleettest.Epoch, EtaAt: fleettest.Epoch.Add(30 * time.Second)}, got.Task)
}

func TestDispatchMine_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		typeID string
		at     string
		task   fleet.Task
		code   string
	}{
		{"no mining power", "tug", "rock", fleet.Idle{}, fleet.CodeActionNotSupported},
		{"nothing to mine", "probe", "hub", fleet.Idle{}, fleet.CodeNoResources},
		{"already mining", "probe", "rock", fleet.Mining{StartedAt: fleettest.Epoch, EtaAt: fleettest.Epoch}, fleet.CodeWrongState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			d := h.seed(t, tt.typeID, tt.at, tt.task)

			_, err := h.svc.DispatchMine(context.Background(), d.ID)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestDispatchMine_InDeepSpace(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "rock", fleet.Idle{})
	d.LocationID = gamedata.DeepSpace
	require.NoError(t, h.store.Drones().Save(context.Background(), d))

	_, err := h.svc.DispatchMine(context.Background(), d.ID)
	errutil.AssertErrorCode(t, err, fleet.CodeNoResources)
}

func TestDispatchMine_UnknownLocationIsIntegrityFault(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "rock", fleet.Idle{})
	d.LocationID = "vanished"
	require.NoError(t, h.store.Drones().Save(context.Background(), d))

	_, err := h.svc.DispatchMine(context.Background(), d.ID)
	errutil.AssertErrorCode(t, err, fleet.CodeDataIntegrity)
	assert.False(t, fleet.IsValidation(err))
}

func TestStopInPlace_Midway(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "tug", "hub", fleet.Idle{})

	// tug: 500 km at 50 km/h is 10 h, 50 L of a 200 L tank.
	_, err := h.svc.DispatchTravel(context.Background(), d.ID, "rock")
	require.NoError(t, err)

	h.clock.Advance(5*time.Hour + 400*time.Millisecond)
	got, err := h.svc.StopInPlace(context.Background(), d.ID)
	require.NoError(t, err)

	assert.Equal(t, fleet.StatusIdle, got.Status())
	assert.Equal(t, gamedata.DeepSpace, got.LocationID)
	assert.InDelta(t, 150, got.Position.X, 1e-3)
	assert.InDelta(t, 200, got.Position.Y, 1e-3)
	assert.InDelta(t, 150, got.FuelL, 1e-9, "fuel was paid at departure")
}

func TestStopInPlace_UsesFullRouteDurationForPartialFlight(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "hub", fleet.Idle{})

	// 20% of a 5 h route is reachable; stop at 30 min, 10% of the full route.
	_, err := h.svc.DispatchTravel(context.Background(), d.ID, "rock")
	require.NoError(t, err)
	h.clock.Advance(30 * time.Minute)

	got, err := h.svc.StopInPlace(context.Background(), d.ID)
	require.NoError(t, err)
	assert.InDelta(t, 30, got.Position.X, 1e-3)
	assert.InDelta(t, 40, got.Position.Y, 1e-3)
}

func TestStopInPlace_NeverPastRunout(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "hub", fleet.Idle{})

	_, err := h.svc.DispatchTravel(context.Background(), d.ID, "rock")
	require.NoError(t, err)
	h.clock.Advance(3 * time.Hour)

	got, err := h.svc.StopInPlace(context.Background(), d.ID)
	require.NoError(t, err)
	assert.InDelta(t, 60, got.Position.X, 1e-3, "runout point is 20% along")
	assert.InDelta(t, 80, got.Position.Y, 1e-3)
}

func TestStopInPlace_EmergencyKeepsPosition(t *testing.T) {
	h := newHarness(t)
	d := h.seed(t, "probe", "hub", fleet.Emergency{
		Destination:         "rock",
		StartedAt:           fleettest.Epoch,
		EtaAt:               fleettest.Epoch.Add(time.Hour),
		BatteryRemainingSec: 3600,
	})
	d.Position = travel.Point{X: 60, Y: 80}
	d.LocationID = gamedata.DeepSpace
	require.NoError(t, h.store.Drones().Save(context.Background(), d))

	got, err := h.svc.StopInPlace(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, fleet.Idle{}, got.Task)
	assert.Equal(t, travel.Point{X: 60, Y: 80}, got.Position)
}

func TestStopInPlace_RejectsOtherStates(t *testing.T) {
	for _, task := range []fleet.Task{
		fleet.Idle{},
		fleet.Offline{},
		fleet.Mining{StartedAt: fleettest.Epoch, EtaAt: fleettest.Epoch.Add(time.Minute)},
	} {
		t.Run(string(task.Status()), func(t *testing.T) {
			h := newHarness(t)
			d := h.seed(t, "probe", "rock", task)

			_, err := h.svc.StopInPlace(context.Background(), d.ID)
			errutil.AssertErrorCode(t, err, fleet.CodeWrongState)
		})
	}
}
