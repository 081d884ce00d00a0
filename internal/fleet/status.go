// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package fleet is the drone domain model: drones, their tasks, accounts and
// the repository interfaces the simulation reads and writes through.
package fleet

// Status is the persisted state of a drone.
type Status string

// Drone statuses.
const (
	StatusIdle       Status = "idle"
	StatusTravelling Status = "travelling"
	StatusMining     Status = "mining"
	StatusEmergency  Status = "emergency"
	StatusOffline    Status = "offline"
)

// Statuses lists every status the simulation produces.
var Statuses = []Status{StatusIdle, StatusTravelling, StatusMining, StatusEmergency, StatusOffline}

// String returns the status as stored.
func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is a status the simulation understands.
// "returning" appears in older client builds and is not valid.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusTravelling, StatusMining, StatusEmergency, StatusOffline:
		return true
	default:
		return false
	}
}

// Pending reports whether the status carries a deadline the tick resolves.
func (s Status) Pending() bool {
	return s == StatusTravelling || s == StatusMining || s == StatusEmergency
}
