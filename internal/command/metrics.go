// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package command

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Status constants for command execution metrics.
const (
	StatusSuccess     = "success"
	StatusRejected    = "rejected"
	StatusError       = "error"
	StatusRateLimited = "rate_limited"
)

// CommandExecutions is the counter for command executions.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "voidops_command_executions_total",
		Help: "Total number of command executions",
	},
	[]string{"command", "status"},
)

// CommandDuration is the histogram for command execution duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "voidops_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command"},
)

// RegisterMetrics registers command package metrics with the given Prometheus registry.
// This must be called at startup to make metrics available on /metrics.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
}

// metricsRecorder tracks metrics for a single command.
type metricsRecorder struct {
	start   time.Time
	command string
	status  string
}

func newMetricsRecorder(command Kind) *metricsRecorder {
	return &metricsRecorder{start: time.Now(), command: string(command), status: StatusSuccess}
}

func (m *metricsRecorder) record() {
	CommandExecutions.WithLabelValues(m.command, m.status).Inc()
	CommandDuration.WithLabelValues(m.command).Observe(time.Since(m.start).Seconds())
}
