// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package fleet_test

import (
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/fleet/fleettest"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/travel"
	"github.com/voidops/voidops/pkg/errutil"
)

func TestNewDrone(t *testing.T) {
	cat := fleettest.Catalog()
	owner := ulid.Make()

	d, err := fleet.NewDrone(cat, owner, "probe", "", fleettest.Epoch)
	require.NoError(t, err)

	assert.Equal(t, owner, d.OwnerID)
	assert.Equal(t, "Probe", d.Name, "name defaults to the type name")
	assert.Equal(t, "hub", d.LocationID)
	assert.Equal(t, travel.Point{}, d.Position)
	assert.InDelta(t, 20, d.FuelL, 1e-9)
	assert.Equal(t, fleet.StatusIdle, d.Status())
	assert.True(t, d.Docked())
	assert.True(t, d.Inventory.Empty())
}

func TestNewDrone_UnknownType(t *testing.T) {
	_, err := fleet.NewDrone(fleettest.Catalog(), ulid.Make(), "battleship", "", fleettest.Epoch)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, fleet.CodeDataIntegrity)
}

func TestDrone_Progress(t *testing.T) {
	start := fleettest.Epoch
	d := &fleet.Drone{Task: fleet.Travelling{StartedAt: start, EtaAt: start.Add(100 * time.Second)}}

	pct, eta, ok := d.Progress(start.Add(25 * time.Second))
	require.True(t, ok)
	assert.InDelta(t, 25, pct, 1e-9)
	assert.Equal(t, start.Add(100*time.Second), eta)

	pct, _, _ = d.Progress(start.Add(time.Hour))
	assert.InDelta(t, 100, pct, 1e-9, "progress is capped")

	_, _, ok = (&fleet.Drone{Task: fleet.Idle{}}).Progress(start)
	assert.False(t, ok)
}

func TestDrone_DockedInDeepSpace(t *testing.T) {
	d := &fleet.Drone{LocationID: gamedata.DeepSpace}
	assert.False(t, d.Docked())
}

func TestDue(t *testing.T) {
	now := fleettest.Epoch
	assert.True(t, fleet.Due(fleet.Mining{StartedAt: now.Add(-time.Minute), EtaAt: now}, now))
	assert.False(t, fleet.Due(fleet.Mining{StartedAt: now, EtaAt: now.Add(time.Second)}, now))
	assert.False(t, fleet.Due(fleet.Idle{}, now))
	assert.False(t, fleet.Due(fleet.Offline{}, now))
}

func TestInventory(t *testing.T) {
	inv := fleet.Inventory{}
	assert.True(t, inv.Empty())

	inv.Add("iron", 1.234)
	inv.Add("iron", 2.001)
	inv.Add("ice", 0.5)

	assert.InDelta(t, 3.24, inv["iron"], 1e-9)
	assert.InDelta(t, 3.74, inv.TotalKg(), 1e-9)
	assert.Equal(t, []string{"ice", "iron"}, inv.Resources())

	c := inv.Clone()
	c.Add("ice", 1)
	assert.InDelta(t, 0.5, inv["ice"], 1e-9, "clone is independent")
}

func TestStatus(t *testing.T) {
	for _, s := range fleet.Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, fleet.Status("returning").Valid())
	assert.True(t, fleet.StatusEmergency.Pending())
	assert.False(t, fleet.StatusOffline.Pending())
}

func TestIsValidation(t *testing.T) {
	id := ulid.Make()
	assert.True(t, fleet.IsValidation(fleet.DroneNotFound(id)))
	assert.True(t, fleet.IsValidation(fleet.WrongState(id, fleet.StatusMining, "travel")))
	assert.True(t, fleet.IsValidation(oops.With("k", "v").Wrap(fleet.DroneNotFound(id))))
	assert.False(t, fleet.IsValidation(fleet.Integrity("broken")))
	assert.False(t, fleet.IsValidation(errors.New("plain")))

	err := fleet.WrongState(id, fleet.StatusMining, "travel")
	errutil.AssertErrorContext(t, err, "status", "mining")
	assert.Contains(t, err.Error(), "cannot travel while mining")
}

func TestSeededRandom_Deterministic(t *testing.T) {
	a, b := fleet.NewSeededRandom(42), fleet.NewSeededRandom(42)
	for range 5 {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.IntN(10), b.IntN(10))
	}
}
