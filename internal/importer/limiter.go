package importer

// limiter.go bounds how many imports run at once.
//
// Each import holds one slot of a buffered-channel semaphore for its whole
// pass. A caller that finds every slot busy waits up to maxWait and then
// gets ErrTooManyImports. Drain lets shutdown wait for running imports.

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	DefaultMaxConcurrentImports = 4
	DefaultMaxWaitTime          = 30 * time.Second
)

// Limiter is a counting semaphore for import passes.
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewLimiter allows maxConcurrent imports at once. Non-positive arguments
// fall back to the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentImports
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting at most maxWait. Every successful Acquire
// must be paired with one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-timer.C:
		return ErrTooManyImports
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active is the number of imports holding a slot.
func (l *Limiter) Active() int {
	return int(l.active.Load())
}

// Drain blocks until no import holds a slot or ctx is done.
func (l *Limiter) Drain(ctx context.Context) error {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for l.Active() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

// LimiterStatus is a point-in-time view for the health endpoint.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status snapshots the limiter.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        l.Active(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
