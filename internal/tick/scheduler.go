// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package tick

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/voidops/voidops/internal/fleet"
	"github.com/voidops/voidops/pkg/errutil"
)

// Tick interval bounds.
const (
	MinInterval = 100 * time.Millisecond
	MaxInterval = 600 * time.Second
)

// CodeInvalidInterval is returned for an interval outside [MinInterval, MaxInterval].
const CodeInvalidInterval = "INVALID_TICK_INTERVAL"

// Ticker runs one sweep. Engine implements it.
type Ticker interface {
	Tick(ctx context.Context, now time.Time) (Summary, error)
}

// ValidateInterval checks d against the tick interval bounds.
func ValidateInterval(d time.Duration) error {
	if d < MinInterval || d > MaxInterval {
		return oops.Code(CodeInvalidInterval).
			With("interval_ms", d.Milliseconds()).
			Errorf("tick interval must be between %d and %d ms", MinInterval.Milliseconds(), MaxInterval.Milliseconds())
	}
	return nil
}

// Scheduler runs sweeps periodically. Sweeps never overlap: the next one is
// timed from the end of the previous, and manual ticks wait their turn.
type Scheduler struct {
	ticker Ticker
	clock  fleet.Clock
	logger *slog.Logger

	sweepMu sync.Mutex

	mu       sync.Mutex
	interval time.Duration
	reset    chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(ticker Ticker, clock fleet.Clock, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if err := ValidateInterval(interval); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = fleet.SystemClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		ticker:   ticker,
		clock:    clock,
		logger:   logger,
		interval: interval,
		reset:    make(chan struct{}, 1),
	}, nil
}

// Start runs one sweep immediately and then one per interval until Stop is
// called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return oops.Errorf("tick scheduler already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	s.logger.Info("tick scheduler started", "interval_ms", s.interval.Milliseconds())
	return nil
}

// Stop halts the scheduler and waits for an in-progress sweep to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("tick scheduler stopped")
}

// Interval returns the current tick interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the tick interval. A running scheduler restarts its
// countdown with the new value.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if err := ValidateInterval(d); err != nil {
		return err
	}
	s.mu.Lock()
	old := s.interval
	s.interval = d
	s.mu.Unlock()

	select {
	case s.reset <- struct{}{}:
	default:
	}
	s.logger.Info("tick interval changed", "old_ms", old.Milliseconds(), "new_ms", d.Milliseconds())
	return nil
}

// TickNow runs a sweep immediately, waiting for any sweep in progress.
func (s *Scheduler) TickNow(ctx context.Context) (Summary, error) {
	return s.sweep(ctx)
}

func (s *Scheduler) sweep(ctx context.Context) (Summary, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()
	return s.ticker.Tick(ctx, s.clock.Now())
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// A sweep is not cancelled midway; shutdown waits for it.
	sweepCtx := context.WithoutCancel(ctx)
	tick := func() {
		if _, err := s.sweep(sweepCtx); err != nil {
			errutil.LogError(s.logger, "tick sweep failed", err)
		}
	}

	tick()
	timer := time.NewTimer(s.Interval())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.reset:
			timer.Reset(s.Interval())
		case <-timer.C:
			tick()
			timer.Reset(s.Interval())
		}
	}
}
