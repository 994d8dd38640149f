package testfixtures

import (
	"sync"
	"time"
)

// Clock is a settable time source shared by services under test.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now for injection. A nil clock falls back to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// CloseMonth moves the clock past the end of (year, month) so that the
// automatic window for it is closed.
func (c *Clock) CloseMonth(year int, month time.Month) {
	c.Set(time.Date(year, month+1, 2, 12, 0, 0, 0, time.UTC))
}
