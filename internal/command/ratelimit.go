// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package command

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Rate limit defaults and floors.
const (
	DefaultBurst     = 10
	DefaultPerSecond = 2.0
	MinBurst         = 1
	MinPerSecond     = 0.1

	defaultSweepInterval = 5 * time.Minute
	defaultIdleAfter     = time.Hour
)

// LimiterConfig configures a RateLimiter. Zero values select the defaults.
type LimiterConfig struct {
	// Burst is how many command tokens an owner can hold.
	Burst int
	// PerSecond is the refill rate.
	PerSecond float64
	// SweepInterval is how often idle owners are forgotten.
	SweepInterval time.Duration
	// IdleAfter is how long an owner may stay quiet before being forgotten.
	IdleAfter time.Duration
}

func (c LimiterConfig) withDefaults() LimiterConfig {
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	c.Burst = max(c.Burst, MinBurst)
	if c.PerSecond <= 0 {
		c.PerSecond = DefaultPerSecond
	}
	c.PerSecond = max(c.PerSecond, MinPerSecond)
	if c.SweepInterval <= 0 {
		c.SweepInterval = defaultSweepInterval
	}
	if c.IdleAfter <= 0 {
		c.IdleAfter = defaultIdleAfter
	}
	return c
}

// wallet holds one owner's command tokens.
type wallet struct {
	tokens float64
	seen   time.Time
}

// spend refills the wallet for the time since it was last seen, then takes
// cost tokens if it can. On refusal it reports how long until cost is
// affordable.
func (w *wallet) spend(now time.Time, cost float64, lim LimiterConfig) (time.Duration, bool) {
	w.tokens = min(float64(lim.Burst), w.tokens+now.Sub(w.seen).Seconds()*lim.PerSecond)
	w.seen = now
	if w.tokens >= cost {
		w.tokens -= cost
		return 0, true
	}
	wait := (cost - w.tokens) / lim.PerSecond
	return time.Duration(wait * float64(time.Second)), false
}

// RateLimiter meters commands per owner. Each command kind spends its Cost
// from the owner's shared wallet; free kinds never touch it. Safe for
// concurrent use. Close stops the background sweep.
type RateLimiter struct {
	lim LimiterConfig
	now func() time.Time

	mu      sync.Mutex
	wallets map[ulid.ULID]*wallet

	owners    prometheus.Gauge
	throttled *prometheus.CounterVec

	stop chan struct{}
	done chan struct{}
}

// NewRateLimiter creates a limiter that reports no metrics.
func NewRateLimiter(cfg LimiterConfig) *RateLimiter {
	return NewRateLimiterWithRegistry(cfg, nil)
}

// NewRateLimiterWithRegistry creates a limiter and, when reg is non-nil,
// registers the tracked-owner gauge and the per-kind throttle counter.
func NewRateLimiterWithRegistry(cfg LimiterConfig, reg prometheus.Registerer) *RateLimiter {
	rl := &RateLimiter{
		lim:     cfg.withDefaults(),
		now:     time.Now,
		wallets: make(map[ulid.ULID]*wallet),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if reg != nil {
		rl.owners = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voidops_ratelimiter_owners",
			Help: "Owners currently tracked by the command rate limiter",
		})
		rl.throttled = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voidops_command_throttled_total",
			Help: "Commands refused by the rate limiter, by command kind",
		}, []string{"command"})
		reg.MustRegister(rl.owners, rl.throttled)
	}
	go rl.sweepLoop()
	return rl
}

// Allow spends kind's cost from owner's wallet. When refused it returns the
// wait until the command would be accepted.
func (rl *RateLimiter) Allow(owner ulid.ULID, kind Kind) (time.Duration, bool) {
	cost := kind.Cost()
	if cost == 0 {
		return 0, true
	}

	rl.mu.Lock()
	now := rl.now()
	w, ok := rl.wallets[owner]
	if !ok {
		w = &wallet{tokens: float64(rl.lim.Burst), seen: now}
		rl.wallets[owner] = w
	}
	wait, allowed := w.spend(now, cost, rl.lim)
	rl.mu.Unlock()

	if !allowed && rl.throttled != nil {
		rl.throttled.WithLabelValues(string(kind)).Inc()
	}
	return wait, allowed
}

// OwnerCount returns the number of tracked owners.
func (rl *RateLimiter) OwnerCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.wallets)
}

// Forget drops owners idle for longer than idle.
func (rl *RateLimiter) Forget(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	for owner, w := range rl.wallets {
		if w.seen.Before(cutoff) {
			delete(rl.wallets, owner)
		}
	}
	if rl.owners != nil {
		rl.owners.Set(float64(len(rl.wallets)))
	}
}

func (rl *RateLimiter) sweepLoop() {
	defer close(rl.done)
	ticker := time.NewTicker(rl.lim.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.Forget(rl.lim.IdleAfter)
		}
	}
}

// Close stops the sweep and waits for it to exit.
func (rl *RateLimiter) Close() {
	close(rl.stop)
	<-rl.done
}
