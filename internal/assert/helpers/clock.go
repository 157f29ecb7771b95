package helpers

import (
	"sync"
	"time"
)

// Clock is a manually advanced time source for deterministic supervision
// tests
type Clock struct {
	now time.Time
	mu  sync.Mutex
}

// NewClock creates a clock pinned to the given instant
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the clock's current instant
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
