// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package command

import (
	"time"

	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/travel"
)

// DroneView is the client representation of a drone.
type DroneView struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	TypeID              string             `json:"type_id"`
	Status              fleet.Status       `json:"status"`
	LocationID          string             `json:"location_id"`
	Position            travel.Point       `json:"position"`
	FuelL               float64            `json:"fuel_l"`
	FuelTankL           float64            `json:"fuel_tank_l"`
	DestinationID       string             `json:"destination_id,omitempty"`
	BatteryRemainingSec *int64             `json:"battery_remaining_sec,omitempty"`
	Inventory           map[string]float64 `json:"inventory"`
	CargoKg             float64            `json:"cargo_kg"`
	ProgressPct         *float64           `json:"progress_pct,omitempty"`
	EtaMs               *int64             `json:"eta_ms,omitempty"`
}

// NewDroneView renders d as seen at now.
func NewDroneView(d *fleet.Drone, cat *gamedata.Catalog, now time.Time) DroneView {
	v := DroneView{
		ID:         d.ID.String(),
		Name:       d.Name,
		TypeID:     d.TypeID,
		Status:     d.Status(),
		LocationID: d.LocationID,
		Position:   d.Position,
		FuelL:      d.FuelL,
		Inventory:  d.Inventory.Clone(),
		CargoKg:    d.Inventory.TotalKg(),
	}
	if spec, ok := cat.Spec(d.TypeID); ok {
		v.FuelTankL = spec.FuelTankL
	}
	switch t := d.Task.(type) {
	case fleet.Travelling:
		v.DestinationID = t.Destination
	case fleet.Emergency:
		v.DestinationID = t.Destination
		remaining := max(0, int64(t.EtaAt.Sub(now)/time.Second))
		v.BatteryRemainingSec = &remaining
	}
	if pct, eta, ok := d.Progress(now); ok {
		etaMs := eta.UnixMilli()
		v.ProgressPct = &pct
		v.EtaMs = &etaMs
	}
	return v
}
