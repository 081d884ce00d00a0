// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

// Package notify pushes tick events to the owning player's live connections
// and carries their commands back in over a websocket.
package notify

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voidops/voidops/internal/event"
)

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 64

var published = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "voidops_notifications_total",
		Help: "Total number of notifications offered to live subscribers by result",
	},
	[]string{"result"},
)

var connections = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "voidops_notify_connections",
		Help: "Current number of live notification subscriptions",
	},
)

// RegisterMetrics registers notify metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(published, connections)
}

// Hub fans entries out to every subscription of the entry's owner.
// Delivery is best effort: a full subscription misses the entry.
type Hub struct {
	mu     sync.RWMutex
	subs   map[ulid.ULID]map[*Subscription]struct{}
	buffer int
	logger *slog.Logger
}

// NewHub creates a hub. A non-positive buffer uses DefaultBuffer.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[ulid.ULID]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Subscription receives one owner's entries until closed.
type Subscription struct {
	owner ulid.ULID
	ch    chan event.Entry
	hub   *Hub
	once  sync.Once
}

// C returns the delivery channel. It is closed by Close.
func (s *Subscription) C() <-chan event.Entry { return s.ch }

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Subscribe registers a new subscription for owner.
func (h *Hub) Subscribe(owner ulid.ULID) *Subscription {
	sub := &Subscription{owner: owner, ch: make(chan event.Entry, h.buffer), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[owner]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[owner] = set
	}
	set[sub] = struct{}{}
	connections.Inc()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[sub.owner]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.owner)
	}
	close(sub.ch)
	connections.Dec()
}

// Subscribers returns the number of live subscriptions for owner.
func (h *Hub) Subscribers(owner ulid.ULID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[owner])
}

// Publish offers e to the owner's subscriptions without blocking.
func (h *Hub) Publish(e event.Entry) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[e.OwnerID] {
		select {
		case sub.ch <- e:
			published.WithLabelValues("delivered").Inc()
		default:
			published.WithLabelValues("dropped").Inc()
			h.logger.Warn("notification dropped: subscriber buffer full",
				"owner_id", e.OwnerID.String(),
				"event_id", e.ID.String(),
				"event_kind", string(e.Kind))
		}
	}
}

var _ event.Notifier = (*Hub)(nil)
