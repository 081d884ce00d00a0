// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package fleet

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/travel"
)

// Drone is a player-owned unit. Task determines its status.
type Drone struct {
	ID         ulid.ULID
	OwnerID    ulid.ULID
	TypeID     string
	Name       string
	Position   travel.Point
	LocationID string
	FuelL      float64
	Task       Task
	Inventory  Inventory
	Version    int64
	CreatedAt  time.Time
}

// Status returns the status implied by the current task.
func (d *Drone) Status() Status {
	if d.Task == nil {
		return StatusIdle
	}
	return d.Task.Status()
}

// Docked reports whether the drone sits at a named location.
func (d *Drone) Docked() bool {
	return d.LocationID != "" && d.LocationID != gamedata.DeepSpace
}

// Clone returns a deep copy of the drone.
func (d *Drone) Clone() *Drone {
	c := *d
	c.Inventory = d.Inventory.Clone()
	return &c
}

// Progress reports how far through its current task the drone is, as a
// percentage, and the task deadline. ok is false for tasks without one.
func (d *Drone) Progress(now time.Time) (pct float64, eta time.Time, ok bool) {
	s, isScheduled := d.Task.(Scheduled)
	if !isScheduled {
		return 0, time.Time{}, false
	}
	started, eta := s.Window()
	total := eta.Sub(started)
	if total <= 0 {
		return 100, eta, true
	}
	ratio := float64(now.Sub(started)) / float64(total)
	ratio = max(0, min(1, ratio))
	return travel.Round(ratio*100, 1), eta, true
}

// NewDrone creates an idle drone with a full tank at the catalog spawn location.
func NewDrone(cat *gamedata.Catalog, owner ulid.ULID, typeID, name string, now time.Time) (*Drone, error) {
	spec, ok := cat.Spec(typeID)
	if !ok {
		return nil, oops.Code(CodeDataIntegrity).With("type_id", typeID).Errorf("unknown drone type")
	}
	spawn, ok := cat.Location(cat.Economy.SpawnLocation)
	if !ok {
		return nil, oops.Code(CodeDataIntegrity).
			With("location_id", cat.Economy.SpawnLocation).
			Errorf("spawn location missing from catalog")
	}
	if name == "" {
		name = spec.Name
	}
	return &Drone{
		ID:         NewULID(),
		OwnerID:    owner,
		TypeID:     typeID,
		Name:       name,
		Position:   travel.PointOf(spawn.Coordinates),
		LocationID: spawn.ID,
		FuelL:      spec.FuelTankL,
		Task:       Idle{},
		Inventory:  Inventory{},
		CreatedAt:  now.UTC(),
	}, nil
}

// Account holds a player's credits.
type Account struct {
	ID        ulid.ULID
	Name      string
	Credits   float64
	CreatedAt time.Time
}
