// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VoidOps Contributors

package event

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Log is the append-only event log. Append joins the caller's transaction
// when the implementation supports one.
type Log interface {
	Append(ctx context.Context, e Entry) error
	// ListByOwner returns an owner's most recent entries, newest first.
	ListByOwner(ctx context.Context, owner ulid.ULID, limit int) ([]Entry, error)
}

// Notifier pushes an entry to the owner's live connections. Delivery is
// best effort and never reported back.
type Notifier interface {
	Publish(e Entry)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(e Entry)

// Publish calls f.
func (f NotifierFunc) Publish(e Entry) { f(e) }

// Discard is a Notifier that drops everything.
var Discard Notifier = NotifierFunc(func(Entry) {})

// MemoryLog keeps entries in process memory.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewMemoryLog creates an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append records an entry.
func (l *MemoryLog) Append(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

// ListByOwner returns an owner's most recent entries, newest first.
func (l *MemoryLog) ListByOwner(_ context.Context, owner ulid.ULID, limit int) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range slices.Backward(l.entries) {
		if limit > 0 && len(out) >= limit {
			break
		}
		if e.OwnerID == owner {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every entry in append order.
func (l *MemoryLog) All() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}
