// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package event defines the simulation's outbound events: the closed set of
// kinds, a typed payload for each, log entries and the notifier contract.
package event

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/travel"
)

// Kind identifies a tick resolution. The value is the name pushed to live clients.
type Kind string

// Event kinds.
const (
	KindArrived   Kind = "drone:arrived"
	KindMined     Kind = "drone:mined"
	KindEmergency Kind = "drone:emergency"
	KindOffline   Kind = "drone:offline"
)

// Kinds lists every event kind.
var Kinds = []Kind{KindArrived, KindMined, KindEmergency, KindOffline}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindArrived, KindMined, KindEmergency, KindOffline:
		return true
	default:
		return false
	}
}

// LogType returns the event type recorded in the event log, e.g. "drone_arrived".
func (k Kind) LogType() string {
	return strings.ReplaceAll(string(k), ":", "_")
}

// KindFromLogType reverses LogType.
func KindFromLogType(s string) (Kind, bool) {
	k := Kind(strings.Replace(s, "_", ":", 1))
	return k, k.Valid()
}

// Payload is implemented by the payload type of each kind.
type Payload interface {
	Kind() Kind
}

// Arrived is emitted when a drone completes a route.
type Arrived struct {
	DroneID    string       `json:"drone_id"`
	DroneName  string       `json:"drone_name"`
	LocationID string       `json:"location_id"`
	Position   travel.Point `json:"position"`
	FuelL      float64      `json:"fuel_l"`
}

// Mined is emitted when a mining cycle yields cargo.
type Mined struct {
	DroneID    string             `json:"drone_id"`
	DroneName  string             `json:"drone_name"`
	LocationID string             `json:"location_id"`
	ResourceID string             `json:"resource_id"`
	QuantityKg float64            `json:"quantity_kg"`
	Inventory  map[string]float64 `json:"inventory"`
}

// Emergency is emitted when a drone runs dry before reaching its destination.
type Emergency struct {
	DroneID             string       `json:"drone_id"`
	DroneName           string       `json:"drone_name"`
	Destination         string       `json:"destination_id,omitempty"`
	Position            travel.Point `json:"position"`
	BatteryRemainingSec int64        `json:"battery_remaining_sec"`
	OfflineAt           int64        `json:"offline_at"`
}

// Offline is emitted when an emergency battery runs out.
type Offline struct {
	DroneID   string       `json:"drone_id"`
	DroneName string       `json:"drone_name"`
	Position  travel.Point `json:"position"`
}

func (Arrived) Kind() Kind   { return KindArrived }
func (Mined) Kind() Kind     { return KindMined }
func (Emergency) Kind() Kind { return KindEmergency }
func (Offline) Kind() Kind   { return KindOffline }

// DecodePayload unmarshals raw into the payload type for kind.
func DecodePayload(kind Kind, raw []byte) (Payload, error) {
	var p Payload
	var err error
	switch kind {
	case KindArrived:
		var v Arrived
		err = json.Unmarshal(raw, &v)
		p = v
	case KindMined:
		var v Mined
		err = json.Unmarshal(raw, &v)
		p = v
	case KindEmergency:
		var v Emergency
		err = json.Unmarshal(raw, &v)
		p = v
	case KindOffline:
		var v Offline
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, oops.Code("EVENT_KIND_UNKNOWN").With("kind", string(kind)).Errorf("unknown event kind")
	}
	if err != nil {
		return nil, oops.Code("EVENT_DECODE_FAILED").With("kind", string(kind)).Wrap(err)
	}
	return p, nil
}

// Entry is one append-only event log record.
type Entry struct {
	ID        ulid.ULID       `json:"id"`
	Kind      Kind            `json:"kind"`
	OwnerID   ulid.ULID       `json:"owner_id"`
	DroneID   ulid.ULID       `json:"drone_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEntry builds a log entry for payload.
func NewEntry(id, owner, drone ulid.ULID, payload Payload, at time.Time) (Entry, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, oops.Code("EVENT_MARSHAL_FAILED").With("kind", string(payload.Kind())).Wrap(err)
	}
	return Entry{
		ID:        id,
		Kind:      payload.Kind(),
		OwnerID:   owner,
		DroneID:   drone,
		Payload:   data,
		CreatedAt: at.UTC(),
	}, nil
}
