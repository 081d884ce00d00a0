// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package gamedata holds the static, read-only game configuration: drone
// specs, world locations, tradeable resources and economic constants.
package gamedata

// DeepSpace is the location id of a drone that is not docked at a named location.
const DeepSpace = "deep_space"

// DefaultRichness applies to locations that do not declare one.
const DefaultRichness = 0.5

// DroneSpec describes the performance envelope of a drone type.
type DroneSpec struct {
	Name               string  `yaml:"name,omitempty" json:"name,omitempty"`
	SpeedKmh           float64 `yaml:"speed_kmh" json:"speed_kmh" jsonschema:"exclusiveMinimum=0"`
	FuelBurnRatePerKm  float64 `yaml:"fuel_burn_rate_l_per_km" json:"fuel_burn_rate_l_per_km" jsonschema:"minimum=0"`
	FuelTankL          float64 `yaml:"fuel_tank_l" json:"fuel_tank_l" jsonschema:"exclusiveMinimum=0"`
	MiningPower        float64 `yaml:"mining_power" json:"mining_power" jsonschema:"minimum=0"`
	BatteryCapacitySec int64   `yaml:"battery_capacity_sec" json:"battery_capacity_sec" jsonschema:"minimum=0"`
}

// CanMine reports whether the drone type has any mining power.
func (s DroneSpec) CanMine() bool {
	return s.MiningPower > 0
}

// Coordinates is a position on the world map, in kilometres.
type Coordinates struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Location is a named place in the world.
type Location struct {
	ID          string      `yaml:"-" json:"-"`
	Name        string      `yaml:"name" json:"name"`
	Type        string      `yaml:"type,omitempty" json:"type,omitempty"`
	Coordinates Coordinates `yaml:"coordinates" json:"coordinates"`
	Resources   []string    `yaml:"resources,omitempty" json:"resources,omitempty"`
	Richness    *float64    `yaml:"richness,omitempty" json:"richness,omitempty" jsonschema:"minimum=0,maximum=1"`
	HasMarket   bool        `yaml:"has_market,omitempty" json:"has_market,omitempty"`
	HasRefuel   bool        `yaml:"has_refuel,omitempty" json:"has_refuel,omitempty"`
}

// EffectiveRichness returns the declared richness or DefaultRichness.
func (l Location) EffectiveRichness() float64 {
	if l.Richness == nil {
		return DefaultRichness
	}
	return *l.Richness
}

// Minable reports whether the location has at least one resource to mine.
func (l Location) Minable() bool {
	return len(l.Resources) > 0
}

// Resource is a tradeable commodity.
type Resource struct {
	ID         string  `yaml:"-" json:"-"`
	Name       string  `yaml:"name,omitempty" json:"name,omitempty"`
	BasePrice  float64 `yaml:"base_price" json:"base_price" jsonschema:"minimum=0"`
	Volatility float64 `yaml:"volatility" json:"volatility" jsonschema:"minimum=0,maximum=1"`
}

// Economy holds the global economic and simulation constants.
type Economy struct {
	StartingBalance       float64 `yaml:"starting_balance" json:"starting_balance" jsonschema:"minimum=0"`
	FuelPricePerL         float64 `yaml:"fuel_price_per_l" json:"fuel_price_per_l" jsonschema:"minimum=0"`
	MarketTaxRate         float64 `yaml:"market_tax_rate" json:"market_tax_rate" jsonschema:"minimum=0,exclusiveMaximum=1"`
	PhysicsTickIntervalMs int64   `yaml:"physics_tick_interval_ms,omitempty" json:"physics_tick_interval_ms,omitempty" jsonschema:"minimum=100,maximum=600000"`
	MiningCycleSec        int64   `yaml:"mining_cycle_sec,omitempty" json:"mining_cycle_sec,omitempty" jsonschema:"minimum=1"`
	SpawnLocation         string  `yaml:"spawn_location,omitempty" json:"spawn_location,omitempty"`
	StarterDrone          string  `yaml:"starter_drone,omitempty" json:"starter_drone,omitempty"`
}

// Defaults applied to Economy fields left empty.
const (
	DefaultTickIntervalMs = 10_000
	DefaultMiningCycleSec = 30
	DefaultSpawnLocation  = "hub"
	DefaultStarterDrone   = "scout"
)

// Catalog is the root of the static game data.
type Catalog struct {
	Drones    map[string]DroneSpec `yaml:"drones" json:"drones"`
	Locations map[string]Location  `yaml:"locations" json:"locations"`
	Resources map[string]Resource  `yaml:"resources" json:"resources"`
	Economy   Economy              `yaml:"economy" json:"economy"`
}

// Spec returns the spec for a drone type.
func (c *Catalog) Spec(typeID string) (DroneSpec, bool) {
	s, ok := c.Drones[typeID]
	return s, ok
}

// Location returns a named location.
func (c *Catalog) Location(id string) (Location, bool) {
	l, ok := c.Locations[id]
	return l, ok
}

// Resource returns a resource price entry.
func (c *Catalog) Resource(id string) (Resource, bool) {
	r, ok := c.Resources[id]
	return r, ok
}

func (c *Catalog) applyDefaults() {
	for id, loc := range c.Locations {
		loc.ID = id
		c.Locations[id] = loc
	}
	for id, res := range c.Resources {
		res.ID = id
		if res.Name == "" {
			res.Name = id
		}
		c.Resources[id] = res
	}
	for id, spec := range c.Drones {
		if spec.Name == "" {
			spec.Name = id
			c.Drones[id] = spec
		}
	}
	if c.Economy.PhysicsTickIntervalMs == 0 {
		c.Economy.PhysicsTickIntervalMs = DefaultTickIntervalMs
	}
	if c.Economy.MiningCycleSec == 0 {
		c.Economy.MiningCycleSec = DefaultMiningCycleSec
	}
	if c.Economy.SpawnLocation == "" {
		c.Economy.SpawnLocation = DefaultSpawnLocation
	}
	if c.Economy.StarterDrone == "" {
		c.Economy.StarterDrone = DefaultStarterDrone
	}
}
