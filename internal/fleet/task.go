// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package fleet

import (
	"time"

	"github.com/voidops/voidops/internal/travel"
)

// Task is the activity a drone is engaged in. Each status has exactly one
// variant, carrying only the fields that are meaningful in that state.
type Task interface {
	Status() Status
	isTask()
}

// Scheduled is implemented by tasks the tick engine resolves at a deadline.
type Scheduled interface {
	Task
	Window() (started, eta time.Time)
}

// Idle is a drone with nothing to do.
type Idle struct{}

// Travelling is a drone flying from Origin towards Destination. EtaAt is the
// fuel runout instant when the tank could not cover the whole route.
type Travelling struct {
	Destination string
	Origin      travel.Point
	StartedAt   time.Time
	EtaAt       time.Time
}

// Mining is a drone running one mining cycle at its current location.
type Mining struct {
	StartedAt time.Time
	EtaAt     time.Time
}

// Emergency is a drone stranded without fuel, living on its battery until EtaAt.
type Emergency struct {
	Destination         string
	StartedAt           time.Time
	EtaAt               time.Time
	BatteryRemainingSec int64
}

// Offline is a drone whose battery ran out. Nothing in the simulation leaves it.
type Offline struct{}

func (Idle) Status() Status       { return StatusIdle }
func (Travelling) Status() Status { return StatusTravelling }
func (Mining) Status() Status     { return StatusMining }
func (Emergency) Status() Status  { return StatusEmergency }
func (Offline) Status() Status    { return StatusOffline }

func (Idle) isTask()       {}
func (Travelling) isTask() {}
func (Mining) isTask()     {}
func (Emergency) isTask()  {}
func (Offline) isTask()    {}

// Window returns the task start and deadline.
func (t Travelling) Window() (started, eta time.Time) { return t.StartedAt, t.EtaAt }

// Window returns the task start and deadline.
func (t Mining) Window() (started, eta time.Time) { return t.StartedAt, t.EtaAt }

// Window returns the task start and deadline.
func (t Emergency) Window() (started, eta time.Time) { return t.StartedAt, t.EtaAt }

// Due reports whether task has a deadline at or before now.
func Due(task Task, now time.Time) bool {
	s, ok := task.(Scheduled)
	if !ok {
		return false
	}
	_, eta := s.Window()
	return !eta.After(now)
}
