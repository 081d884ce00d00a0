// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package travel implements the geometry and travel model: distances,
// durations and fuel costs between points on the world map.
package travel

import (
	"math"
	"time"

	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/gamedata"
)

// CodeUnknownLocation is returned by PlanBetween for ids missing from the catalog.
const CodeUnknownLocation = "UNKNOWN_LOCATION"

// Point is an absolute position in kilometres.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointOf converts catalog coordinates to a Point.
func PointOf(c gamedata.Coordinates) Point {
	return Point{X: c.X, Y: c.Y}
}

// Distance returns the Euclidean distance between a and b in kilometres.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Params describes a route for a given drone type.
type Params struct {
	DistanceKm float64
	Duration   time.Duration
	FuelCostL  float64
}

// DurationMs returns the route duration in whole milliseconds.
func (p Params) DurationMs() int64 {
	return p.Duration.Milliseconds()
}

// DurationSec returns the route duration in whole seconds, never less than one.
func (p Params) DurationSec() int64 {
	return max(1, p.DurationMs()/1000)
}

// Plan computes the travel parameters from one point to another.
// Duration is rounded up to the next millisecond.
func Plan(from, to Point, spec gamedata.DroneSpec) Params {
	dist := Distance(from, to)
	var ms int64
	if spec.SpeedKmh > 0 {
		ms = int64(math.Ceil(dist / spec.SpeedKmh * float64(time.Hour/time.Millisecond)))
	}
	return Params{
		DistanceKm: dist,
		Duration:   time.Duration(ms) * time.Millisecond,
		FuelCostL:  dist * spec.FuelBurnRatePerKm,
	}
}

// Resolve returns the coordinates of a named location.
func Resolve(cat *gamedata.Catalog, id string) (Point, error) {
	loc, ok := cat.Location(id)
	if !ok {
		return Point{}, oops.Code(CodeUnknownLocation).With("location_id", id).Errorf("unknown location %q", id)
	}
	return PointOf(loc.Coordinates), nil
}

// PlanBetween computes travel parameters between two named locations.
func PlanBetween(cat *gamedata.Catalog, fromID, toID string, spec gamedata.DroneSpec) (Params, error) {
	from, err := Resolve(cat, fromID)
	if err != nil {
		return Params{}, err
	}
	to, err := Resolve(cat, toID)
	if err != nil {
		return Params{}, err
	}
	return Plan(from, to, spec), nil
}

// PositionAlong interpolates between from and to. Ratio is clamped to [0,1].
func PositionAlong(from, to Point, ratio float64) Point {
	ratio = math.Max(0, math.Min(1, ratio))
	return Point{
		X: from.X + (to.X-from.X)*ratio,
		Y: from.Y + (to.Y-from.Y)*ratio,
	}
}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// RoundPoint rounds both coordinates to the given number of decimal places.
func RoundPoint(p Point, places int) Point {
	return Point{X: Round(p.X, places), Y: Round(p.Y, places)}
}
