// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package command decodes inbound player commands, checks ownership and rate
// limits, and routes each command to the dispatcher or economy service.
package command

import (
	"encoding/json"

	"github.com/samber/oops"
)

// Kind names an inbound command frame.
type Kind string

// Command kinds.
const (
	KindTravel     Kind = "cmd:travel"
	KindMine       Kind = "cmd:mine"
	KindStop       Kind = "cmd:stop"
	KindSell       Kind = "cmd:sell"
	KindRefuel     Kind = "cmd:refuel"
	KindFleetList  Kind = "fleet:list"
	KindFleetDrone Kind = "fleet:drone"
	KindEventsList Kind = "events:list"
)

// Reply types that are not a command kind.
const (
	ReplyOK    = "cmd:ok"
	ReplyError = "cmd:error"
)

// Kinds lists every command kind.
var Kinds = []Kind{
	KindTravel, KindMine, KindStop, KindSell, KindRefuel,
	KindFleetList, KindFleetDrone, KindEventsList,
}

// Mutating reports whether the command changes game state.
func (k Kind) Mutating() bool {
	switch k {
	case KindTravel, KindMine, KindStop, KindSell, KindRefuel:
		return true
	default:
		return false
	}
}

// Cost is the number of rate-limit tokens the command spends. Queries are
// free.
func (k Kind) Cost() float64 {
	if k.Mutating() {
		return 1
	}
	return 0
}

// Args is the typed payload of a command.
type Args interface {
	Kind() Kind
}

// TravelArgs sends a drone to a named location.
type TravelArgs struct {
	DroneID     string `json:"drone_id"`
	Destination string `json:"destination"`
}

// MineArgs starts a mining cycle.
type MineArgs struct {
	DroneID string `json:"drone_id"`
}

// StopArgs aborts a flight.
type StopArgs struct {
	DroneID string `json:"drone_id"`
}

// SellArgs sells a drone's cargo.
type SellArgs struct {
	DroneID string `json:"drone_id"`
}

// RefuelArgs buys fuel. A nil Litres fills the tank.
type RefuelArgs struct {
	DroneID string   `json:"drone_id"`
	Litres  *float64 `json:"litres,omitempty"`
}

// FleetListArgs lists the caller's drones.
type FleetListArgs struct{}

// FleetDroneArgs shows one drone.
type FleetDroneArgs struct {
	DroneID string `json:"drone_id"`
}

// EventsListArgs lists the caller's recent events. Zero Limit means the
// store default.
type EventsListArgs struct {
	Limit int `json:"limit,omitempty"`
}

func (TravelArgs) Kind() Kind     { return KindTravel }
func (MineArgs) Kind() Kind       { return KindMine }
func (StopArgs) Kind() Kind       { return KindStop }
func (SellArgs) Kind() Kind       { return KindSell }
func (RefuelArgs) Kind() Kind     { return KindRefuel }
func (FleetListArgs) Kind() Kind  { return KindFleetList }
func (FleetDroneArgs) Kind() Kind { return KindFleetDrone }
func (EventsListArgs) Kind() Kind { return KindEventsList }

// Request is one decoded inbound frame.
type Request struct {
	// ID is an optional client correlation id echoed in the reply.
	ID   string
	Args Args
}

// envelope is the wire shape of inbound and outbound frames.
type envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses a frame of the form {"type": kind, "id": ..., "data": {...}}.
func Decode(raw []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Request{}, oops.Code(CodeInvalidArgs).With("usage", "{\"type\": ..., \"data\": {...}}").Wrap(err)
	}

	var args Args
	var err error
	switch Kind(env.Type) {
	case KindTravel:
		args, err = decodeArgs[TravelArgs](env)
	case KindMine:
		args, err = decodeArgs[MineArgs](env)
	case KindStop:
		args, err = decodeArgs[StopArgs](env)
	case KindSell:
		args, err = decodeArgs[SellArgs](env)
	case KindRefuel:
		args, err = decodeArgs[RefuelArgs](env)
	case KindFleetList:
		args, err = decodeArgs[FleetListArgs](env)
	case KindFleetDrone:
		args, err = decodeArgs[FleetDroneArgs](env)
	case KindEventsList:
		args, err = decodeArgs[EventsListArgs](env)
	default:
		return Request{ID: env.ID}, ErrUnknownCommand(env.Type)
	}
	if err != nil {
		return Request{ID: env.ID}, err
	}
	return Request{ID: env.ID, Args: args}, nil
}

func decodeArgs[T Args](env envelope) (Args, error) {
	var v T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		return nil, oops.Code(CodeInvalidArgs).
			With("command", env.Type).
			With("usage", usage(Kind(env.Type))).
			Wrap(err)
	}
	return v, nil
}

func usage(k Kind) string {
	switch k {
	case KindTravel:
		return `{"drone_id": "...", "destination": "..."}`
	case KindRefuel:
		return `{"drone_id": "...", "litres": 10}`
	case KindFleetList:
		return `{}`
	case KindEventsList:
		return `{"limit": 20}`
	default:
		return `{"drone_id": "..."}`
	}
}

// Reply is an outbound frame answering a Request.
type Reply struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
	Data any    `json:"data"`
}

// ErrorData is the payload of a cmd:error reply.
type ErrorData struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
