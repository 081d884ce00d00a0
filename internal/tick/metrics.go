// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package tick

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voidops/voidops/internal/event"
)

// Resolutions counts tick resolutions by event kind.
// Use RegisterMetrics to register this with a Prometheus registry.
var Resolutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "voidops_tick_resolutions_total",
		Help: "Total number of drone task resolutions by event kind",
	},
	[]string{"kind"},
)

// ResolutionFailures counts drones whose resolution failed and was rolled back.
var ResolutionFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "voidops_tick_resolution_failures_total",
		Help: "Total number of failed drone task resolutions",
	},
)

// SweepDuration is the histogram of tick sweep duration.
var SweepDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "voidops_tick_sweep_duration_seconds",
		Help:    "Tick sweep duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// DronesDue is the number of drones found due by the last sweep.
var DronesDue = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "voidops_tick_drones_due",
		Help: "Number of drones with an overdue task at the last sweep",
	},
)

// RegisterMetrics registers tick metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Resolutions)
	reg.MustRegister(ResolutionFailures)
	reg.MustRegister(SweepDuration)
	reg.MustRegister(DronesDue)
}

func recordSweep(s Summary, d time.Duration) {
	DronesDue.Set(float64(s.Due))
	SweepDuration.Observe(d.Seconds())
	for kind, n := range s.ByKind {
		Resolutions.WithLabelValues(string(kind)).Add(float64(n))
	}
	if s.Failed > 0 {
		ResolutionFailures.Add(float64(s.Failed))
	}
}

// ensure every kind has a zero series so rate() queries work from startup.
func init() {
	for _, k := range event.Kinds {
		Resolutions.WithLabelValues(string(k))
	}
}
