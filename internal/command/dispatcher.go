// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package command

import (
	"context"
	"log/slog"
	"math"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voidops/voidops/internal/economy"
	"github.com/voidops/voidops/internal/event"
	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/internal/gamedata"
	"github.com/voidops/voidops/pkg/errutil"
)

var tracer = otel.Tracer("voidops/command")

// TaskDispatcher starts and aborts drone tasks. dispatch.Service implements it.
type TaskDispatcher interface {
	DispatchTravel(ctx context.Context, id ulid.ULID, destinationID string) (*fleet.Drone, error)
	DispatchMine(ctx context.Context, id ulid.ULID) (*fleet.Drone, error)
	StopInPlace(ctx context.Context, id ulid.ULID) (*fleet.Drone, error)
}

// Market sells cargo and fuel. economy.Service implements it.
type Market interface {
	SellCargo(ctx context.Context, id ulid.ULID) (economy.Receipt, error)
	Refuel(ctx context.Context, id ulid.ULID, litres float64) (economy.RefuelResult, error)
}

// DispatcherConfig holds dependencies for Dispatcher.
type DispatcherConfig struct {
	Tasks   TaskDispatcher
	Market  Market
	Drones  fleet.DroneRepository
	Events  event.Log
	Catalog *gamedata.Catalog
	Clock   fleet.Clock
	// Limiter is optional; nil disables rate limiting.
	Limiter *RateLimiter
	Logger  *slog.Logger
}

// Dispatcher executes decoded commands on behalf of an owner.
type Dispatcher struct {
	tasks   TaskDispatcher
	market  Market
	drones  fleet.DroneRepository
	events  event.Log
	catalog *gamedata.Catalog
	clock   fleet.Clock
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewDispatcher creates a new command dispatcher.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	switch {
	case cfg.Tasks == nil:
		return nil, oops.Errorf("task dispatcher is required")
	case cfg.Market == nil:
		return nil, oops.Errorf("market is required")
	case cfg.Drones == nil:
		return nil, oops.Errorf("drone repository is required")
	case cfg.Events == nil:
		return nil, oops.Errorf("event log is required")
	case cfg.Catalog == nil:
		return nil, oops.Errorf("catalog is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = fleet.SystemClock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		tasks:   cfg.Tasks,
		market:  cfg.Market,
		drones:  cfg.Drones,
		events:  cfg.Events,
		catalog: cfg.Catalog,
		clock:   clock,
		limiter: cfg.Limiter,
		logger:  logger,
	}, nil
}

// ActionResult is the payload of a cmd:ok reply.
type ActionResult struct {
	Action  string                `json:"action"`
	Drone   *DroneView            `json:"drone,omitempty"`
	Receipt *economy.Receipt      `json:"receipt,omitempty"`
	Refuel  *economy.RefuelResult `json:"refuel,omitempty"`
}

// Handle decodes raw and executes it.
func (d *Dispatcher) Handle(ctx context.Context, owner ulid.ULID, raw []byte) Reply {
	req, err := Decode(raw)
	if err != nil {
		d.logger.DebugContext(ctx, "command rejected", "owner_id", owner.String(), "error", err)
		return errorReply(req.ID, err)
	}
	return d.Execute(ctx, owner, req)
}

// Execute runs req for owner. Failures are returned as cmd:error replies
// carrying a player message; faults are logged.
func (d *Dispatcher) Execute(ctx context.Context, owner ulid.ULID, req Request) Reply {
	if req.Args == nil {
		return errorReply(req.ID, ErrUnknownCommand(""))
	}
	kind := req.Args.Kind()
	metrics := newMetricsRecorder(kind)
	defer metrics.record()

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.kind", string(kind)),
			attribute.String("command.owner_id", owner.String()),
		),
	)
	defer span.End()

	replyType, data, err := d.execute(ctx, owner, req.Args)
	if err == nil {
		return Reply{Type: replyType, ID: req.ID, Data: data}
	}

	span.RecordError(err)
	switch {
	case errutil.CodeOf(err) == CodeRateLimited:
		metrics.status = StatusRateLimited
		span.SetAttributes(attribute.Bool("command.rate_limited", true))
	case fleet.IsValidation(err):
		metrics.status = StatusRejected
		d.logger.DebugContext(ctx, "command rejected",
			"command", string(kind),
			"owner_id", owner.String(),
			"code", errutil.CodeOf(err))
	default:
		metrics.status = StatusError
		span.SetStatus(codes.Error, err.Error())
		errutil.LogError(d.logger, "command failed", err,
			"command", string(kind),
			"owner_id", owner.String())
	}
	return errorReply(req.ID, err)
}

func errorReply(id string, err error) Reply {
	code := errutil.CodeOf(err)
	if !fleet.IsValidation(err) {
		code = ""
	}
	return Reply{Type: ReplyError, ID: id, Data: ErrorData{Code: code, Message: PlayerMessage(err)}}
}

func (d *Dispatcher) execute(ctx context.Context, owner ulid.ULID, args Args) (string, any, error) {
	if d.limiter != nil {
		if wait, ok := d.limiter.Allow(owner, args.Kind()); !ok {
			return "", nil, ErrRateLimited(wait)
		}
	}

	switch a := args.(type) {
	case TravelArgs:
		if a.Destination == "" {
			return "", nil, ErrInvalidArgs(KindTravel, "destination is required")
		}
		return d.droneAction(ctx, owner, a.DroneID, "travel", func(id ulid.ULID) (*fleet.Drone, error) {
			return d.tasks.DispatchTravel(ctx, id, a.Destination)
		})
	case MineArgs:
		return d.droneAction(ctx, owner, a.DroneID, "mine", func(id ulid.ULID) (*fleet.Drone, error) {
			return d.tasks.DispatchMine(ctx, id)
		})
	case StopArgs:
		return d.droneAction(ctx, owner, a.DroneID, "stop", func(id ulid.ULID) (*fleet.Drone, error) {
			return d.tasks.StopInPlace(ctx, id)
		})
	case SellArgs:
		id, err := d.owned(ctx, owner, a.DroneID)
		if err != nil {
			return "", nil, err
		}
		receipt, err := d.market.SellCargo(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return ReplyOK, ActionResult{Action: "sell", Receipt: &receipt}, nil
	case RefuelArgs:
		id, err := d.owned(ctx, owner, a.DroneID)
		if err != nil {
			return "", nil, err
		}
		litres := math.MaxFloat64
		if a.Litres != nil {
			litres = *a.Litres
		}
		result, err := d.market.Refuel(ctx, id, litres)
		if err != nil {
			return "", nil, err
		}
		return ReplyOK, ActionResult{Action: "refuel", Refuel: &result}, nil
	case FleetListArgs:
		drones, err := d.drones.ListByOwner(ctx, owner)
		if err != nil {
			return "", nil, oops.With("operation", "list fleet").With("owner_id", owner.String()).Wrap(err)
		}
		now := d.clock.Now()
		views := make([]DroneView, 0, len(drones))
		for _, dr := range drones {
			views = append(views, NewDroneView(dr, d.catalog, now))
		}
		return string(KindFleetList), views, nil
	case FleetDroneArgs:
		id, err := d.owned(ctx, owner, a.DroneID)
		if err != nil {
			return "", nil, err
		}
		dr, err := d.drones.Get(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return string(KindFleetDrone), NewDroneView(dr, d.catalog, d.clock.Now()), nil
	case EventsListArgs:
		if a.Limit < 0 {
			return "", nil, ErrInvalidArgs(KindEventsList, "limit must not be negative")
		}
		entries, err := d.events.ListByOwner(ctx, owner, a.Limit)
		if err != nil {
			return "", nil, oops.With("operation", "list events").With("owner_id", owner.String()).Wrap(err)
		}
		if entries == nil {
			entries = []event.Entry{}
		}
		return string(KindEventsList), entries, nil
	default:
		return "", nil, ErrUnknownCommand(string(args.Kind()))
	}
}

func (d *Dispatcher) droneAction(ctx context.Context, owner ulid.ULID, rawID, action string, fn func(ulid.ULID) (*fleet.Drone, error)) (string, any, error) {
	id, err := d.owned(ctx, owner, rawID)
	if err != nil {
		return "", nil, err
	}
	dr, err := fn(id)
	if err != nil {
		return "", nil, err
	}
	view := NewDroneView(dr, d.catalog, d.clock.Now())
	return ReplyOK, ActionResult{Action: action, Drone: &view}, nil
}

// owned parses rawID and checks the drone belongs to owner. Someone else's
// drone is reported as not found.
func (d *Dispatcher) owned(ctx context.Context, owner ulid.ULID, rawID string) (ulid.ULID, error) {
	id, err := fleet.ParseULID(rawID)
	if err != nil {
		return ulid.ULID{}, err
	}
	dr, err := d.drones.Get(ctx, id)
	if err != nil {
		return ulid.ULID{}, err
	}
	if dr.OwnerID != owner {
		return ulid.ULID{}, fleet.DroneNotFound(id)
	}
	return id, nil
}
