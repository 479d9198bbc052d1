package ezo

import "time"

// Clock abstracts the monotonic time source used for reply timeouts and
// line framing, so tests can drive the protocol deterministically.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the real wall/monotonic clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// FakeClock is a manually driven Clock for tests and simulations.
// Sleep advances time instead of blocking, so timeout loops terminate
// without real waiting.
type FakeClock struct {
	now time.Time
}

// NewFakeClock creates a FakeClock starting at the given instant.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time { return c.now }

func (c *FakeClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

// Advance moves the clock forward without sleeping.
func (c *FakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
