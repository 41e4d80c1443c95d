package ratelimit

import (
	"context"
	"sync"
	"time"
)

type record struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps counters in process memory. Counters are lost on restart
// and are not shared between instances.
type MemoryLimiter struct {
	mu        sync.Mutex
	records   map[string]*record
	limit     int
	window    time.Duration
	now       Clock
	nextSweep time.Time
}

type MemoryOption func(*MemoryLimiter)

// WithClock overrides time.Now.
func WithClock(c Clock) MemoryOption {
	return func(m *MemoryLimiter) { m.now = c }
}

func NewMemoryLimiter(limit int, window time.Duration, opts ...MemoryOption) *MemoryLimiter {
	limit, window = normalize(limit, window)
	m := &MemoryLimiter{
		records: make(map[string]*record),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryLimiter) Check(ctx context.Context, identifier string) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	rec, ok := m.records[identifier]
	if !ok || now.After(rec.resetAt) {
		rec = &record{count: 1, resetAt: now.Add(m.window)}
		m.records[identifier] = rec
		return Result{Allowed: true, Limit: m.limit, Remaining: m.limit - 1, ResetAt: rec.resetAt}, nil
	}

	if rec.count >= m.limit {
		return Result{Allowed: false, Limit: m.limit, Remaining: 0, ResetAt: rec.resetAt}, nil
	}

	rec.count++
	return Result{Allowed: true, Limit: m.limit, Remaining: m.limit - rec.count, ResetAt: rec.resetAt}, nil
}

// sweep drops expired records at most once per window. Caller holds mu.
func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for id, rec := range m.records {
		if now.After(rec.resetAt) {
			delete(m.records, id)
		}
	}
	m.nextSweep = now.Add(m.window)
}

// Len returns the number of tracked identifiers.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
