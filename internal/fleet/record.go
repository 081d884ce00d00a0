// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package fleet

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/travel"
)

// Record is the flat persisted shape of a drone. Task fields are nullable
// and only meaningful for certain statuses; FromRecord enforces which.
type Record struct {
	ID                  ulid.ULID
	OwnerID             ulid.ULID
	TypeID              string
	Name                string
	Status              string
	FuelL               float64
	X                   float64
	Y                   float64
	LocationID          string
	DestinationID       *string
	OriginX             *float64
	OriginY             *float64
	StartedAt           *int64
	EtaAt               *int64
	BatteryRemainingSec *int64
	Version             int64
	CreatedAt           time.Time
}

// ToRecord flattens a drone into its persisted shape.
func ToRecord(d *Drone) Record {
	r := Record{
		ID:         d.ID,
		OwnerID:    d.OwnerID,
		TypeID:     d.TypeID,
		Name:       d.Name,
		Status:     string(d.Status()),
		FuelL:      d.FuelL,
		X:          d.Position.X,
		Y:          d.Position.Y,
		LocationID: d.LocationID,
		Version:    d.Version,
		CreatedAt:  d.CreatedAt,
	}
	switch t := d.Task.(type) {
	case Travelling:
		r.DestinationID = ptr(t.Destination)
		r.OriginX = ptr(t.Origin.X)
		r.OriginY = ptr(t.Origin.Y)
		r.StartedAt = ptr(t.StartedAt.Unix())
		r.EtaAt = ptr(t.EtaAt.Unix())
	case Mining:
		r.StartedAt = ptr(t.StartedAt.Unix())
		r.EtaAt = ptr(t.EtaAt.Unix())
	case Emergency:
		if t.Destination != "" {
			r.DestinationID = ptr(t.Destination)
		}
		r.StartedAt = ptr(t.StartedAt.Unix())
		r.EtaAt = ptr(t.EtaAt.Unix())
		r.BatteryRemainingSec = ptr(t.BatteryRemainingSec)
	}
	return r
}

// FromRecord rebuilds a drone from its persisted shape. A field combination
// that no status allows is a DATA_INTEGRITY fault.
func FromRecord(r Record, inv Inventory) (*Drone, error) {
	d := &Drone{
		ID:         r.ID,
		OwnerID:    r.OwnerID,
		TypeID:     r.TypeID,
		Name:       r.Name,
		Position:   travel.Point{X: r.X, Y: r.Y},
		LocationID: r.LocationID,
		FuelL:      r.FuelL,
		Inventory:  inv.Clone(),
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
	}
	corrupt := func(reason string) error {
		return oops.Code(CodeDataIntegrity).
			With("drone_id", r.ID.String()).
			With("status", r.Status).
			Errorf("corrupt drone record: %s", reason)
	}
	if r.FuelL < 0 {
		return nil, corrupt("negative fuel")
	}
	window := func() (time.Time, time.Time, error) {
		if r.StartedAt == nil || r.EtaAt == nil {
			return time.Time{}, time.Time{}, corrupt("task window missing")
		}
		if *r.StartedAt > *r.EtaAt {
			return time.Time{}, time.Time{}, corrupt("task starts after its deadline")
		}
		return time.Unix(*r.StartedAt, 0).UTC(), time.Unix(*r.EtaAt, 0).UTC(), nil
	}

	switch Status(r.Status) {
	case StatusIdle, StatusOffline:
		if r.StartedAt != nil || r.EtaAt != nil || r.DestinationID != nil || r.BatteryRemainingSec != nil {
			return nil, corrupt("task fields set on a drone without a task")
		}
		if Status(r.Status) == StatusIdle {
			d.Task = Idle{}
		} else {
			d.Task = Offline{}
		}
	case StatusTravelling:
		started, eta, err := window()
		if err != nil {
			return nil, err
		}
		if r.DestinationID == nil || r.OriginX == nil || r.OriginY == nil {
			return nil, corrupt("travel route missing")
		}
		if r.BatteryRemainingSec != nil {
			return nil, corrupt("battery countdown on a travelling drone")
		}
		d.Task = Travelling{
			Destination: *r.DestinationID,
			Origin:      travel.Point{X: *r.OriginX, Y: *r.OriginY},
			StartedAt:   started,
			EtaAt:       eta,
		}
	case StatusMining:
		started, eta, err := window()
		if err != nil {
			return nil, err
		}
		if r.DestinationID != nil || r.BatteryRemainingSec != nil {
			return nil, corrupt("travel fields on a mining drone")
		}
		d.Task = Mining{StartedAt: started, EtaAt: eta}
	case StatusEmergency:
		started, eta, err := window()
		if err != nil {
			return nil, err
		}
		if r.BatteryRemainingSec == nil {
			return nil, corrupt("battery countdown missing")
		}
		em := Emergency{StartedAt: started, EtaAt: eta, BatteryRemainingSec: *r.BatteryRemainingSec}
		if r.DestinationID != nil {
			em.Destination = *r.DestinationID
		}
		d.Task = em
	default:
		return nil, corrupt("unknown status")
	}
	return d, nil
}

func ptr[T any](v T) *T {
	return &v
}
