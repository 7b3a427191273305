package testutil

import (
	"sync"
	"time"
)

// FixedClock is a settable clock for tests.
//
// It satisfies argo.Clock. The time only moves when Set or Advance is called,
// so changed timestamps stamped during a test are predictable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at the given epoch second.
func NewFixedClock(epoch int64) *FixedClock {
	return &FixedClock{now: time.Unix(epoch, 0).UTC()}
}

// Now returns the frozen time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to the given epoch second.
func (c *FixedClock) Set(epoch int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(epoch, 0).UTC()
}

// Advance moves the clock forward by d and returns the new time.
func (c *FixedClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}
