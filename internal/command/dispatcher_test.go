// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package command_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidops/voidops/internal/command"
	"github.com/voidops/voidops/internal/dispatch"
	"github.com/voidops/voidops/internal/economy"
	"github.com/voidops/voidops/internal/event"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/fleet/fleettest"
	"github.com/voidops/voidops/internal/fleet/memory"
)

type fixture struct {
	store  *memory.Store
	clock  *fleettest.Clock
	events *event.MemoryLog
	disp   *command.Dispatcher
	owner  ulid.ULID
	drone  *fleet.Drone
}

func newFixture(t *testing.T, limiter *command.RateLimiter) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := fleettest.NewClock(fleettest.Epoch)
	cat := fleettest.Catalog()
	events := event.NewMemoryLog()

	disp, err := command.NewDispatcher(command.DispatcherConfig{
		Tasks: dispatch.NewService(dispatch.ServiceConfig{
			Drones: store.Drones(), Transactor: store, Catalog: cat, Clock: clock,
		}),
		Market: economy.NewService(economy.ServiceConfig{
			Drones: store.Drones(), Accounts: store.Accounts(), Transactor: store, Catalog: cat,
			Random: &fleettest.Random{},
		}),
		Drones:  store.Drones(),
		Events:  events,
		Catalog: cat,
		Clock:   clock,
		Limiter: limiter,
	})
	require.NoError(t, err)

	owner := ulid.Make()
	ctx := context.Background()
	require.NoError(t, store.Accounts().Create(ctx, &fleet.Account{ID: owner, Name: "ada", Credits: 100}))
	d, err := fleet.NewDrone(cat, owner, "probe", "Pathfinder", fleettest.Epoch)
	require.NoError(t, err)
	require.NoError(t, store.Drones().Create(ctx, d))

	return &fixture{store: store, clock: clock, events: events, disp: disp, owner: owner, drone: d}
}

func (f *fixture) send(t *testing.T, owner ulid.ULID, frame string) command.Reply {
	t.Helper()
	return f.disp.Handle(context.Background(), owner, []byte(frame))
}

func (f *fixture) frame(kind command.Kind, data map[string]any) string {
	raw, _ := json.Marshal(map[string]any{"type": kind, "id": "c1", "data": data})
	return string(raw)
}

func errorData(t *testing.T, r command.Reply) command.ErrorData {
	t.Helper()
	require.Equal(t, command.ReplyError, r.Type)
	data, ok := r.Data.(command.ErrorData)
	require.True(t, ok)
	return data
}

func TestNewDispatcher_RequiresDependencies(t *testing.T) {
	_, err := command.NewDispatcher(command.DispatcherConfig{})
	assert.Error(t, err)
}

func TestDispatcher_Travel(t *testing.T) {
	f := newFixture(t, nil)

	r := f.send(t, f.owner, f.frame(command.KindTravel, map[string]any{
		"drone_id": f.drone.ID.String(), "destination": "depot",
	}))
	require.Equal(t, command.ReplyOK, r.Type)
	assert.Equal(t, "c1", r.ID)

	res := r.Data.(command.ActionResult)
	assert.Equal(t, "travel", res.Action)
	require.NotNil(t, res.Drone)
	assert.Equal(t, fleet.StatusTravelling, res.Drone.Status)
	assert.Equal(t, "depot", res.Drone.DestinationID)
	require.NotNil(t, res.Drone.EtaMs)
	assert.Equal(t, fleettest.Epoch.Add(30*time.Minute).UnixMilli(), *res.Drone.EtaMs)
	assert.InDelta(t, 0, *res.Drone.ProgressPct, 1e-9)
}

func TestDispatcher_ForeignDroneIsNotFound(t *testing.T) {
	f := newFixture(t, nil)

	r := f.send(t, ulid.Make(), f.frame(command.KindMine, map[string]any{"drone_id": f.drone.ID.String()}))
	data := errorData(t, r)
	assert.Equal(t, fleet.CodeDroneNotFound, data.Code)
	assert.Equal(t, "Drone not found.", data.Message)
}

func TestDispatcher_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		kind    command.Kind
		data    func(f *fixture) map[string]any
		code    string
		message string
	}{
		{
			"bad id", command.KindStop,
			func(*fixture) map[string]any { return map[string]any{"drone_id": "not-a-ulid"} },
			fleet.CodeInvalidID, "Drone not found.",
		},
		{
			"missing destination", command.KindTravel,
			func(f *fixture) map[string]any { return map[string]any{"drone_id": f.drone.ID.String()} },
			command.CodeInvalidArgs, `Usage: {"drone_id": "...", "destination": "..."}`,
		},
		{
			"stop while idle", command.KindStop,
			func(f *fixture) map[string]any { return map[string]any{"drone_id": f.drone.ID.String()} },
			fleet.CodeWrongState, "Drone is idle, cannot stop.",
		},
		{
			"mine at hub", command.KindMine,
			func(f *fixture) map[string]any { return map[string]any{"drone_id": f.drone.ID.String()} },
			fleet.CodeNoResources, "No minable resources at this location.",
		},
		{
			"sell empty hold", command.KindSell,
			func(f *fixture) map[string]any { return map[string]any{"drone_id": f.drone.ID.String()} },
			fleet.CodeCargoEmpty, "No cargo to sell.",
		},
		{
			"refuel full tank", command.KindRefuel,
			func(f *fixture) map[string]any { return map[string]any{"drone_id": f.drone.ID.String()} },
			fleet.CodeTankFull, "Fuel tank already full.",
		},
		{
			"negative event limit", command.KindEventsList,
			func(*fixture) map[string]any { return map[string]any{"limit": -1} },
			command.CodeInvalidArgs, `Usage: {"limit": 20}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			data := errorData(t, f.send(t, f.owner, f.frame(tt.kind, tt.data(f))))
			assert.Equal(t, tt.code, data.Code)
			assert.Equal(t, tt.message, data.Message)
		})
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	f := newFixture(t, nil)
	data := errorData(t, f.send(t, f.owner, `{"type":"cmd:warp","id":"x"}`))
	assert.Equal(t, command.CodeUnknownCommand, data.Code)
}

func TestDispatcher_RefuelWithoutAmountFillsTank(t *testing.T) {
	f := newFixture(t, nil)
	f.drone.FuelL = 12
	require.NoError(t, f.store.Drones().Save(context.Background(), f.drone))

	r := f.send(t, f.owner, f.frame(command.KindRefuel, map[string]any{"drone_id": f.drone.ID.String()}))
	require.Equal(t, command.ReplyOK, r.Type)
	res := r.Data.(command.ActionResult)
	require.NotNil(t, res.Refuel)
	assert.InDelta(t, 8, res.Refuel.LitresAdded, 1e-9)
	assert.InDelta(t, 16, res.Refuel.Cost, 1e-9)
	assert.InDelta(t, 84, res.Refuel.Balance, 1e-9)
}

func TestDispatcher_Sell(t *testing.T) {
	f := newFixture(t, nil)
	f.drone.Inventory = fleet.Inventory{"iron": 10}
	require.NoError(t, f.store.Drones().Save(context.Background(), f.drone))

	r := f.send(t, f.owner, f.frame(command.KindSell, map[string]any{"drone_id": f.drone.ID.String()}))
	require.Equal(t, command.ReplyOK, r.Type)
	res := r.Data.(command.ActionResult)
	require.NotNil(t, res.Receipt)
	assert.InDelta(t, 45, res.Receipt.CreditsEarned, 1e-9)
}

func TestDispatcher_FleetList(t *testing.T) {
	f := newFixture(t, nil)
	r := f.send(t, f.owner, `{"type":"fleet:list"}`)
	require.Equal(t, string(command.KindFleetList), r.Type)
	views := r.Data.([]command.DroneView)
	require.Len(t, views, 1)
	assert.Equal(t, "Pathfinder", views[0].Name)
	assert.Equal(t, fleet.StatusIdle, views[0].Status)
	assert.InDelta(t, 20, views[0].FuelTankL, 1e-9)
	assert.Nil(t, views[0].ProgressPct)

	empty := f.send(t, ulid.Make(), `{"type":"fleet:list"}`)
	assert.Empty(t, empty.Data)
}

func TestDispatcher_FleetDroneShowsProgress(t *testing.T) {
	f := newFixture(t, nil)
	id := f.drone.ID.String()
	require.Equal(t, command.ReplyOK, f.send(t, f.owner, f.frame(command.KindTravel, map[string]any{"drone_id": id, "destination": "depot"})).Type)

	f.clock.Advance(15 * time.Minute)
	r := f.send(t, f.owner, f.frame(command.KindFleetDrone, map[string]any{"drone_id": id}))
	require.Equal(t, string(command.KindFleetDrone), r.Type)
	view := r.Data.(command.DroneView)
	require.NotNil(t, view.ProgressPct)
	assert.InDelta(t, 50, *view.ProgressPct, 1e-9)
}

func TestDispatcher_EventsList(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	for i := range 3 {
		e, err := event.NewEntry(ulid.Make(), f.owner, f.drone.ID, event.Offline{DroneID: f.drone.ID.String()}, fleettest.Epoch.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, f.events.Append(ctx, e))
	}

	r := f.send(t, f.owner, f.frame(command.KindEventsList, map[string]any{"limit": 2}))
	require.Equal(t, string(command.KindEventsList), r.Type)
	entries := r.Data.([]event.Entry)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt), "newest first")

	none := f.send(t, ulid.Make(), `{"type":"events:list"}`)
	assert.Equal(t, []event.Entry{}, none.Data)
}

func TestDispatcher_RateLimitsMutatingCommands(t *testing.T) {
	limiter := command.NewRateLimiter(command.LimiterConfig{Burst: 1, PerSecond: command.MinPerSecond})
	defer limiter.Close()
	f := newFixture(t, limiter)
	stop := f.frame(command.KindStop, map[string]any{"drone_id": f.drone.ID.String()})

	assert.Equal(t, fleet.CodeWrongState, errorData(t, f.send(t, f.owner, stop)).Code, "first command consumes the burst")
	assert.Equal(t, command.CodeRateLimited, errorData(t, f.send(t, f.owner, stop)).Code)

	r := f.send(t, f.owner, `{"type":"fleet:list"}`)
	assert.Equal(t, string(command.KindFleetList), r.Type, "queries are not rate limited")
}

func TestDispatcher_ExecuteWithoutArgs(t *testing.T) {
	f := newFixture(t, nil)
	r := f.disp.Execute(context.Background(), f.owner, command.Request{ID: "z"})
	assert.Equal(t, command.CodeUnknownCommand, errorData(t, r).Code)
}
