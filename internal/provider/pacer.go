package provider

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a fixed minimum interval between outbound calls to one
// provider. Calls are deliberately serialized: the free tiers used here have
// low request quotas and concurrent bursts cause cascading 429 responses, so
// rate-limit compliance takes priority over latency.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	clock    func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	lastCall time.Time
}

// NewPacer creates a pacer with the given inter-call interval.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{
		interval: interval,
		clock:    time.Now,
		sleep:    sleepContext,
	}
}

// WithClock sets a custom clock for deterministic tests.
func (p *Pacer) WithClock(clock func() time.Time) *Pacer {
	p.clock = clock
	return p
}

// WithSleep sets a custom sleep function so tests run without wall-clock
// delays.
func (p *Pacer) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Pacer {
	p.sleep = sleep
	return p
}

// Wait blocks until the interval since the previous call has elapsed.
// The first call never waits. Returns ctx.Err() if the context is done.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock()
	if !p.lastCall.IsZero() {
		if remaining := p.interval - now.Sub(p.lastCall); remaining > 0 {
			if err := p.sleep(ctx, remaining); err != nil {
				return err
			}
			now = p.clock()
		}
	}
	p.lastCall = now
	return nil
}

// sleepContext sleeps for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
