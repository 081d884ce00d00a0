// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package dispatch starts drone tasks: travel, mining and stop-in-place.
// Each operation checks its preconditions and writes the new task inside one
// transaction holding the drone's row lock.
package dispatch

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/travel"
)

// arrivalTolerance is how close to a location a docked drone must be to
// count as already there.
const arrivalTolerance = 0.001

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Drones     fleet.DroneRepository
	Transactor fleet.Transactor
	Catalog    *gamedata.Catalog
	Clock      fleet.Clock
}

// Service is the task dispatcher.
type Service struct {
	drones  fleet.DroneRepository
	tx      fleet.Transactor
	catalog *gamedata.Catalog
	clock   fleet.Clock
}

// NewService creates a new Service with the given configuration.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = fleet.SystemClock
	}
	return &Service{
		drones:  cfg.Drones,
		tx:      cfg.Transactor,
		catalog: cfg.Catalog,
		clock:   clock,
	}
}

// update runs fn against a locked copy of the drone and saves the result.
func (s *Service) update(ctx context.Context, id ulid.ULID, fn func(d *fleet.Drone, now time.Time) error) (*fleet.Drone, error) {
	var out *fleet.Drone
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		d, err := s.drones.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(d, s.clock.Now()); err != nil {
			return err
		}
		if err := s.drones.Save(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) spec(d *fleet.Drone) (gamedata.DroneSpec, error) {
	spec, ok := s.catalog.Spec(d.TypeID)
	if !ok {
		return gamedata.DroneSpec{}, oops.Code(fleet.CodeDataIntegrity).
			With("drone_id", d.ID.String()).
			With("type_id", d.TypeID).
			Errorf("drone type missing from catalog")
	}
	return spec, nil
}

// DispatchTravel sends an idle drone from its current position to a named
// location. A drone without enough fuel still departs; its deadline is set to
// the instant the tank runs dry and the tick turns it into an emergency.
func (s *Service) DispatchTravel(ctx context.Context, id ulid.ULID, destinationID string) (*fleet.Drone, error) {
	return s.update(ctx, id, func(d *fleet.Drone, now time.Time) error {
		if d.Status() != fleet.StatusIdle {
			return fleet.WrongState(d.ID, d.Status(), "travel")
		}
		spec, err := s.spec(d)
		if err != nil {
			return err
		}
		dest, ok := s.catalog.Location(destinationID)
		if !ok {
			return oops.Code(fleet.CodeUnknownDestination).
				With("destination_id", destinationID).
				Errorf("unknown destination %q", destinationID)
		}
		to := travel.PointOf(dest.Coordinates)
		from := d.Position
		if d.LocationID == destinationID && travel.Distance(from, to) < arrivalTolerance {
			return oops.Code(fleet.CodeAlreadyAtDestination).
				With("drone_id", d.ID.String()).
				With("destination_id", destinationID).
				Errorf("drone is already at %s", destinationID)
		}

		params := travel.Plan(from, to, spec)
		nowMs := now.UnixMilli()
		startSec := floorDiv(nowMs, 1000)

		flightMs := params.DurationMs()
		fuel := d.FuelL - params.FuelCostL
		if fuel < 0 {
			ratio := 0.0
			if params.FuelCostL > 0 {
				ratio = max(0, d.FuelL/params.FuelCostL)
			}
			flightMs = int64(float64(flightMs) * ratio)
			fuel = 0
		}
		etaSec := max(startSec+1, floorDiv(nowMs+flightMs, 1000))

		d.FuelL = travel.Round(fuel, 3)
		d.Task = fleet.Travelling{
			Destination: destinationID,
			Origin:      travel.RoundPoint(from, 3),
			StartedAt:   time.Unix(startSec, 0).UTC(),
			EtaAt:       time.Unix(etaSec, 0).UTC(),
		}
		return nil
	})
}

// DispatchMine starts one mining cycle at the drone's current location.
func (s *Service) DispatchMine(ctx context.Context, id ulid.ULID) (*fleet.Drone, error) {
	return s.update(ctx, id, func(d *fleet.Drone, now time.Time) error {
		if d.Status() != fleet.StatusIdle {
			return fleet.WrongState(d.ID, d.Status(), "mine")
		}
		spec, err := s.spec(d)
		if err != nil {
			return err
		}
		if !spec.CanMine() {
			return oops.Code(fleet.CodeActionNotSupported).
				With("drone_id", d.ID.String()).
				With("type_id", d.TypeID).
				Errorf("%s drones cannot mine", spec.Name)
		}
		loc, ok := s.catalog.Location(d.LocationID)
		if !ok && d.LocationID != gamedata.DeepSpace {
			return fleet.Integrity("drone %s is docked at unknown location %q", d.ID, d.LocationID)
		}
		if !loc.Minable() {
			return oops.Code(fleet.CodeNoResources).
				With("drone_id", d.ID.String()).
				With("location_id", d.LocationID).
				Errorf("no minable resources here")
		}

		cycle := time.Duration(s.catalog.Economy.MiningCycleSec) * time.Second
		if cycle <= 0 {
			cycle = gamedata.DefaultMiningCycleSec * time.Second
		}
		nowMs := now.UnixMilli()
		d.Task = fleet.Mining{
			StartedAt: time.Unix(floorDiv(nowMs, 1000), 0).UTC(),
			EtaAt:     time.Unix(floorDiv(nowMs+cycle.Milliseconds(), 1000), 0).UTC(),
		}
		return nil
	})
}

// StopInPlace aborts a flight and leaves the drone idle in deep space at its
// current position. A travelling drone's position is interpolated along the
// full route; an emergency drone stays at the point where it ran dry.
func (s *Service) StopInPlace(ctx context.Context, id ulid.ULID) (*fleet.Drone, error) {
	return s.update(ctx, id, func(d *fleet.Drone, now time.Time) error {
		pos := d.Position
		switch t := d.Task.(type) {
		case fleet.Travelling:
			p, err := s.travelPosition(d, t, now)
			if err != nil {
				return err
			}
			pos = p
		case fleet.Emergency:
			// stays where the tank ran dry
		default:
			return fleet.WrongState(d.ID, d.Status(), "stop")
		}

		d.Position = travel.RoundPoint(pos, 3)
		d.LocationID = gamedata.DeepSpace
		d.Task = fleet.Idle{}
		return nil
	})
}

// travelPosition interpolates where a travelling drone is at now. Elapsed
// time is capped at the task deadline, so a drone that ran dry is never
// placed past its runout point.
func (s *Service) travelPosition(d *fleet.Drone, t fleet.Travelling, now time.Time) (travel.Point, error) {
	spec, err := s.spec(d)
	if err != nil {
		return travel.Point{}, err
	}
	dest, ok := s.catalog.Location(t.Destination)
	if !ok {
		return travel.Point{}, oops.Code(fleet.CodeDataIntegrity).
			With("drone_id", d.ID.String()).
			With("destination_id", t.Destination).
			Errorf("destination missing from catalog")
	}
	to := travel.PointOf(dest.Coordinates)
	full := travel.Plan(t.Origin, to, spec).DurationSec()

	nowSec := now.Unix()
	if eta := t.EtaAt.Unix(); nowSec > eta {
		nowSec = eta
	}
	elapsed := max(0, nowSec-t.StartedAt.Unix())
	return travel.PositionAlong(t.Origin, to, float64(elapsed)/float64(full)), nil
}

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
