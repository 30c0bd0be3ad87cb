package webhooks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Ledger records which notification event ids have already been applied.
type Ledger interface {
	HasProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

const defaultLedgerCapacity = 10000

// MemoryLedger is a process-local Ledger. Capacity bounds the number of ids
// kept (first-marked evicted first); a positive TTL also forgets ids after it
// elapses. Zero TTL keeps ids until capacity pushes them out.
type MemoryLedger struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]time.Time // eventID -> marked at
	order    []string             // mark order, oldest first
	Now      func() time.Time
}

func NewMemoryLedger(capacity int, ttl time.Duration) *MemoryLedger {
	if capacity <= 0 {
		capacity = defaultLedgerCapacity
	}
	if ttl < 0 {
		ttl = 0
	}
	return &MemoryLedger{
		capacity: capacity,
		ttl:      ttl,
		entries:  map[string]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryLedger) HasProcessed(_ context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, fmt.Errorf("webhooks: event id is required")
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	markedAt, ok := l.entries[eventID]
	if !ok {
		return false, nil
	}
	return !l.expired(markedAt, now), nil
}

func (l *MemoryLedger) MarkProcessed(_ context.Context, eventID string) error {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("webhooks: event id is required")
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[eventID]; ok {
		l.entries[eventID] = now
		return nil
	}
	l.pruneLocked(now)
	for len(l.entries) >= l.capacity {
		l.evictOldestLocked()
	}
	l.entries[eventID] = now
	l.order = append(l.order, eventID)
	return nil
}

// Len reports how many ids are currently held.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MemoryLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *MemoryLedger) expired(markedAt, now time.Time) bool {
	return l.ttl > 0 && !now.Before(markedAt.Add(l.ttl))
}

// pruneLocked drops expired ids and compacts the order slice.
func (l *MemoryLedger) pruneLocked(now time.Time) {
	kept := l.order[:0]
	for _, id := range l.order {
		markedAt, ok := l.entries[id]
		if !ok {
			continue
		}
		if l.expired(markedAt, now) {
			delete(l.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	l.order = kept
}

func (l *MemoryLedger) evictOldestLocked() {
	for len(l.order) > 0 {
		id := l.order[0]
		l.order = l.order[1:]
		if _, ok := l.entries[id]; ok {
			delete(l.entries, id)
			return
		}
	}
	// order and entries drifted; fall back to dropping an arbitrary id
	for id := range l.entries {
		delete(l.entries, id)
		return
	}
}

var _ Ledger = (*MemoryLedger)(nil)
