// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package admin serves the operator routes that force a tick and change the
// tick cadence at runtime.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/voidops/voidops/internal/event"
	"github.com/voidops/voidops/internal/tick"
	"github.com/voidops/voidops/pkg/errutil"
)

// TickController is the part of the scheduler the admin routes drive.
type TickController interface {
	TickNow(ctx context.Context) (tick.Summary, error)
	Interval() time.Duration
	SetInterval(d time.Duration) error
}

// Mux accepts route registrations. http.ServeMux and observability.Server both satisfy it.
type Mux interface {
	Handle(pattern string, h http.Handler)
}

// Config wires the admin routes.
type Config struct {
	Ticks TickController
	// Requests counts requests by route and status. Optional.
	Requests *prometheus.CounterVec
	Logger   *slog.Logger
}

type handler struct {
	ticks    TickController
	requests *prometheus.CounterVec
	logger   *slog.Logger
}

// Register mounts POST /admin/tick and GET/PUT /admin/tick-interval on mux.
func Register(mux Mux, cfg Config) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{ticks: cfg.Ticks, requests: cfg.Requests, logger: logger.With("component", "admin")}
	mux.Handle("POST /admin/tick", http.HandlerFunc(h.tick))
	mux.Handle("GET /admin/tick-interval", http.HandlerFunc(h.getInterval))
	mux.Handle("PUT /admin/tick-interval", http.HandlerFunc(h.setInterval))
}

// SummaryResponse is the JSON form of a forced sweep.
type SummaryResponse struct {
	Due        int                `json:"due"`
	Resolved   int                `json:"resolved"`
	Failed     int                `json:"failed"`
	ByKind     map[event.Kind]int `json:"by_kind"`
	DurationMs int64              `json:"duration_ms"`
}

// IntervalBody is the request and response body of /admin/tick-interval.
type IntervalBody struct {
	IntervalMs int64 `json:"interval_ms"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const codeBadRequest = "BAD_REQUEST"

func (h *handler) tick(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sum, err := h.ticks.TickNow(r.Context())
	if err != nil {
		errutil.LogError(h.logger, "forced tick failed", err)
		h.fail(w, "tick", http.StatusInternalServerError, "TICK_FAILED", "tick failed")
		return
	}
	byKind := sum.ByKind
	if byKind == nil {
		byKind = map[event.Kind]int{}
	}
	h.logger.Info("forced tick", "due", sum.Due, "resolved", sum.Resolved, "failed", sum.Failed)
	h.respond(w, "tick", http.StatusOK, SummaryResponse{
		Due:        sum.Due,
		Resolved:   sum.Resolved,
		Failed:     sum.Failed,
		ByKind:     byKind,
		DurationMs: time.Since(start).Milliseconds(),
	})
}

func (h *handler) getInterval(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, "get_interval", http.StatusOK, IntervalBody{IntervalMs: h.ticks.Interval().Milliseconds()})
}

func (h *handler) setInterval(w http.ResponseWriter, r *http.Request) {
	var body IntervalBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.fail(w, "set_interval", http.StatusBadRequest, codeBadRequest, "body must be {\"interval_ms\": N}")
		return
	}
	if err := h.ticks.SetInterval(time.Duration(body.IntervalMs) * time.Millisecond); err != nil {
		if errutil.CodeOf(err) == tick.CodeInvalidInterval {
			h.fail(w, "set_interval", http.StatusBadRequest, tick.CodeInvalidInterval, err.Error())
			return
		}
		errutil.LogError(h.logger, "set tick interval failed", err)
		h.fail(w, "set_interval", http.StatusInternalServerError, "INTERNAL", "could not change interval")
		return
	}
	h.respond(w, "set_interval", http.StatusOK, IntervalBody{IntervalMs: h.ticks.Interval().Milliseconds()})
}

func (h *handler) fail(w http.ResponseWriter, route string, status int, code, msg string) {
	h.respond(w, route, status, errorBody{Code: code, Message: msg})
}

func (h *handler) respond(w http.ResponseWriter, route string, status int, body any) {
	if h.requests != nil {
		h.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Debug("admin response write failed", "route", route, "error", err)
	}
}
