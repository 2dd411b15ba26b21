package stats

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Pacer spaces repeated requests at a fixed rate using a leaky bucket. Each
// call to Next reserves the next slot; a caller that falls behind runs
// immediately instead of bursting to catch up.
//
// Pacer is safe for concurrent use.
type Pacer struct {
	mu          sync.Mutex
	rate        float64
	lastDrip    time.Time
	accumulated float64

	slots  atomic.Int64
	waited atomic.Duration

	now func() time.Time
}

// NewPacer creates a pacer allowing rate requests per second. A rate of zero
// or less disables pacing.
func NewPacer(rate float64) *Pacer {
	return &Pacer{rate: rate, lastDrip: time.Now(), now: time.Now}
}

// Enabled reports whether the pacer ever delays
func (p *Pacer) Enabled() bool {
	return p != nil && p.rate > 0
}

// Next returns when the next request may start. The result is in the past
// when the caller is behind schedule.
func (p *Pacer) Next() time.Time {
	if p == nil {
		return time.Now()
	}
	now := p.now()
	if p.rate <= 0 {
		return now
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.slots.Inc()
	if elapsed := now.Sub(p.lastDrip).Seconds(); elapsed > 0 {
		p.accumulated += elapsed * p.rate
	}
	if p.accumulated > 1 {
		p.accumulated = 1
	}

	if p.accumulated >= 1 {
		p.accumulated--
		p.lastDrip = now
		return now
	}

	// lastDrip moves to the reserved slot so the sleep is not counted twice
	base := now
	if p.lastDrip.After(now) {
		base = p.lastDrip
	}
	wait := time.Duration((1 - p.accumulated) / p.rate * float64(time.Second))
	p.accumulated = 0
	p.lastDrip = base.Add(wait)
	p.waited.Add(p.lastDrip.Sub(now))
	return p.lastDrip
}

// Wait blocks until the next slot or until ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	if !p.Enabled() {
		return ctx.Err()
	}
	wait := p.Next().Sub(p.now())
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Slots is the number of slots handed out so far
func (p *Pacer) Slots() int64 { return p.slots.Load() }

// Waited is the total delay imposed so far
func (p *Pacer) Waited() time.Duration { return p.waited.Load() }
