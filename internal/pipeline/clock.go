package pipeline

import (
	"context"
	"sync"
	"time"
)

// Clock samples a reference "now" and refreshes it on a fixed
// interval. Open-intervention durations are computed against the
// sampled value so displayed durations stay approximately live
// without resampling on every request.
type Clock struct {
	mu       sync.RWMutex
	now      time.Time
	interval time.Duration
	sample   func() time.Time
}

// NewClock builds a clock refreshing at the given interval. A
// non-positive interval falls back to one minute.
func NewClock(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = time.Minute
	}
	c := &Clock{interval: interval, sample: time.Now}
	c.now = c.sample()
	return c
}

// Now returns the last sampled reference time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Run refreshes the sample until the context is cancelled.
func (c *Clock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.now = c.sample()
			c.mu.Unlock()
		}
	}
}
