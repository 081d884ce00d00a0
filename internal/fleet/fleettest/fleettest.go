// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package fleettest provides deterministic clock and random sources and a
// small catalog for simulation tests.
package fleettest

import (
	"sync"
	"time"

	"github.com/voidops/voidops/internal/gamedata"
)

// Epoch is a convenient fixed start time for tests.
var Epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current test time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Random returns fixed values. Float64 cycles through Floats (0.5 when
// empty); IntN cycles through Ints modulo n (0 when empty).
type Random struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi, ii int
}

// Float64 returns the next configured float.
func (r *Random) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Floats) == 0 {
		return 0.5
	}
	v := r.Floats[r.fi%len(r.Floats)]
	r.fi++
	return v
}

// IntN returns the next configured int, reduced modulo n.
func (r *Random) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Ints) == 0 || n <= 0 {
		return 0
	}
	v := r.Ints[r.ii%len(r.Ints)] % n
	r.ii++
	return v
}

func richness(v float64) *float64 { return &v }

// Catalog returns a small world:
//
//   - hub at (0,0) with market and refuel
//   - rock at (300,400), a minable field with iron and nickel, richness 0.5
//   - depot at (30,40) with refuel only
//   - probe drones: 100 km/h, 0.2 L/km, 20 L tank, mining power 10, 3600 s battery
//   - tug drones: no mining power
func Catalog() *gamedata.Catalog {
	cat := &gamedata.Catalog{
		Drones: map[string]gamedata.DroneSpec{
			"probe": {Name: "Probe", SpeedKmh: 100, FuelBurnRatePerKm: 0.2, FuelTankL: 20, MiningPower: 10, BatteryCapacitySec: 3600},
			"tug":   {Name: "Tug", SpeedKmh: 50, FuelBurnRatePerKm: 0.1, FuelTankL: 200, MiningPower: 0, BatteryCapacitySec: 600},
		},
		Locations: map[string]gamedata.Location{
			"hub":   {ID: "hub", Name: "Hub", Coordinates: gamedata.Coordinates{X: 0, Y: 0}, HasMarket: true, HasRefuel: true},
			"rock":  {ID: "rock", Name: "Rock", Coordinates: gamedata.Coordinates{X: 300, Y: 400}, Resources: []string{"iron", "nickel"}, Richness: richness(0.5)},
			"depot": {ID: "depot", Name: "Depot", Coordinates: gamedata.Coordinates{X: 30, Y: 40}, HasRefuel: true},
		},
		Resources: map[string]gamedata.Resource{
			"iron":   {ID: "iron", Name: "Iron Ore", BasePrice: 5, Volatility: 0},
			"nickel": {ID: "nickel", Name: "Nickel", BasePrice: 9, Volatility: 0.2},
		},
		Economy: gamedata.Economy{
			StartingBalance:       1000,
			FuelPricePerL:         2,
			MarketTaxRate:         0.1,
			PhysicsTickIntervalMs: gamedata.DefaultTickIntervalMs,
			MiningCycleSec:        gamedata.DefaultMiningCycleSec,
			SpawnLocation:         "hub",
			StarterDrone:          "probe",
		},
	}
	return cat
}
