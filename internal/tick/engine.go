// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package tick resolves overdue drone tasks. The Engine performs one sweep;
// the Scheduler runs sweeps periodically without letting them overlap.
package tick

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/voidops/voidops/internal/event"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/internal/travel"
	"github.com/voidops/voidops/pkg/errutil"
)

var tracer = otel.Tracer("voidops/tick")

// EngineConfig holds dependencies for Engine.
type EngineConfig struct {
	Drones     fleet.DroneRepository
	Transactor fleet.Transactor
	Log        event.Log
	Notifier   event.Notifier
	Catalog    *gamedata.Catalog
	Random     fleet.Random
	Logger     *slog.Logger
}

// Engine resolves every drone whose task deadline has passed.
type Engine struct {
	drones   fleet.DroneRepository
	tx       fleet.Transactor
	log      event.Log
	notifier event.Notifier
	catalog  *gamedata.Catalog
	random   fleet.Random
	logger   *slog.Logger
}

// NewEngine creates a new Engine with the given configuration.
func NewEngine(cfg EngineConfig) *Engine {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = event.Discard
	}
	random := cfg.Random
	if random == nil {
		random = fleet.SystemRandom
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		drones:   cfg.Drones,
		tx:       cfg.Transactor,
		log:      cfg.Log,
		notifier: notifier,
		catalog:  cfg.Catalog,
		random:   random,
		logger:   logger,
	}
}

// Summary describes one sweep.
type Summary struct {
	Due      int
	Resolved int
	Failed   int
	ByKind   map[event.Kind]int
}

// Tick resolves every drone due at now. A drone whose resolution fails is
// rolled back, logged and counted; the sweep carries on with the rest.
// Only failing to list due drones is returned as an error.
func (e *Engine) Tick(ctx context.Context, now time.Time) (Summary, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "tick.sweep")
	defer span.End()

	sum := Summary{ByKind: make(map[event.Kind]int)}
	ids, err := e.drones.ListDue(ctx, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return sum, oops.With("operation", "list due drones").Wrap(err)
	}
	sum.Due = len(ids)

	for _, id := range ids {
		entry, err := e.resolveDrone(ctx, id, now)
		if err != nil {
			sum.Failed++
			errutil.LogError(e.logger, "tick resolution failed", err, "drone_id", id.String())
			continue
		}
		if entry == nil {
			// resolved concurrently since ListDue
			continue
		}
		sum.Resolved++
		sum.ByKind[entry.Kind]++
		e.notifier.Publish(*entry)
	}

	span.SetAttributes(
		attribute.Int("tick.due", sum.Due),
		attribute.Int("tick.resolved", sum.Resolved),
		attribute.Int("tick.failed", sum.Failed),
	)
	elapsed := time.Since(start)
	recordSweep(sum, elapsed)

	level := slog.LevelDebug
	if sum.Resolved > 0 || sum.Failed > 0 {
		level = slog.LevelInfo
	}
	e.logger.Log(ctx, level, "tick sweep complete",
		"due", sum.Due,
		"resolved", sum.Resolved,
		"failed", sum.Failed,
		"duration_ms", elapsed.Milliseconds())
	return sum, nil
}

// resolveDrone applies one drone's transition and appends its event in a
// single transaction. A nil entry means the drone was no longer due.
func (e *Engine) resolveDrone(ctx context.Context, id ulid.ULID, now time.Time) (*event.Entry, error) {
	var out *event.Entry
	err := e.tx.InTransaction(ctx, func(ctx context.Context) error {
		d, err := e.drones.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !fleet.Due(d.Task, now) {
			return nil
		}
		payload, err := e.resolve(d, now)
		if err != nil {
			return err
		}
		if err := e.drones.Save(ctx, d); err != nil {
			return err
		}
		entry, err := event.NewEntry(fleet.NewULID(), d.OwnerID, d.ID, payload, now)
		if err != nil {
			return err
		}
		if err := e.log.Append(ctx, entry); err != nil {
			return oops.With("operation", "append event").With("drone_id", d.ID.String()).Wrap(err)
		}
		out = &entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		e.logger.Info("drone task resolved",
			"drone_id", out.DroneID.String(),
			"owner_id", out.OwnerID.String(),
			"event_kind", string(out.Kind))
	}
	return out, nil
}

// resolve mutates d according to its due task and returns the event payload.
func (e *Engine) resolve(d *fleet.Drone, now time.Time) (event.Payload, error) {
	spec, ok := e.catalog.Spec(d.TypeID)
	if !ok {
		return nil, fleet.Integrity("drone %s has unknown type %q", d.ID, d.TypeID)
	}

	switch t := d.Task.(type) {
	case fleet.Travelling:
		return e.resolveTravel(d, t, spec, now)
	case fleet.Mining:
		return e.resolveMining(d, spec)
	case fleet.Emergency:
		d.Task = fleet.Offline{}
		return event.Offline{
			DroneID:   d.ID.String(),
			DroneName: d.Name,
			Position:  d.Position,
		}, nil
	default:
		return nil, fleet.Integrity("drone %s has no resolvable task (%s)", d.ID, d.Status())
	}
}

// resolveTravel lands the drone, or puts it into emergency when its deadline
// falls short of the full route time, which only a partial flight produces.
func (e *Engine) resolveTravel(d *fleet.Drone, t fleet.Travelling, spec gamedata.DroneSpec, now time.Time) (event.Payload, error) {
	dest, ok := e.catalog.Location(t.Destination)
	if !ok {
		return nil, fleet.Integrity("drone %s travelling to unknown location %q", d.ID, t.Destination)
	}
	to := travel.PointOf(dest.Coordinates)
	full := travel.Plan(t.Origin, to, spec).DurationSec()

	startSec := t.StartedAt.Unix()
	etaSec := t.EtaAt.Unix()
	if etaSec >= startSec+full {
		d.Task = fleet.Idle{}
		d.LocationID = dest.ID
		d.Position = to
		return event.Arrived{
			DroneID:    d.ID.String(),
			DroneName:  d.Name,
			LocationID: dest.ID,
			Position:   to,
			FuelL:      d.FuelL,
		}, nil
	}

	ratio := float64(etaSec-startSec) / float64(full)
	nowSec := now.Unix()
	battery := spec.BatteryCapacitySec

	d.Position = travel.RoundPoint(travel.PositionAlong(t.Origin, to, ratio), 3)
	d.LocationID = gamedata.DeepSpace
	d.FuelL = 0
	d.Task = fleet.Emergency{
		Destination:         t.Destination,
		StartedAt:           time.Unix(nowSec, 0).UTC(),
		EtaAt:               time.Unix(nowSec+battery, 0).UTC(),
		BatteryRemainingSec: battery,
	}
	return event.Emergency{
		DroneID:             d.ID.String(),
		DroneName:           d.Name,
		Destination:         t.Destination,
		Position:            d.Position,
		BatteryRemainingSec: battery,
		OfflineAt:           nowSec + battery,
	}, nil
}

func (e *Engine) resolveMining(d *fleet.Drone, spec gamedata.DroneSpec) (event.Payload, error) {
	loc, ok := e.catalog.Location(d.LocationID)
	if !ok || !loc.Minable() {
		return nil, fleet.Integrity("drone %s mining at %q which has no resources", d.ID, d.LocationID)
	}
	resource := loc.Resources[e.random.IntN(len(loc.Resources))]
	yield := travel.Round(spec.MiningPower*loc.EffectiveRichness()*(0.8+e.random.Float64()*0.4), 2)

	if d.Inventory == nil {
		d.Inventory = fleet.Inventory{}
	}
	d.Inventory.Add(resource, yield)
	d.Task = fleet.Idle{}
	return event.Mined{
		DroneID:    d.ID.String(),
		DroneName:  d.Name,
		LocationID: loc.ID,
		ResourceID: resource,
		QuantityKg: yield,
		Inventory:  d.Inventory.Clone(),
	}, nil
}
