// Package timeutil provides a testable abstraction over time for the
// estimation pipeline. Sensor timestamps are float seconds on a shared
// monotonic clock; the Clock interface lets tests pin and step that
// clock deterministically.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides the current time to the estimator and pipeline loop.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NowSeconds returns the current time as float seconds, the unit
	// sensor observations are stamped in.
	NowSeconds() float64

	// Since returns the duration elapsed since t.
	Since(t time.Time) time.Duration
}

// Seconds converts a time to float seconds on the shared clock.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current wall time.
func (RealClock) Now() time.Time { return time.Now() }

// NowSeconds returns the current time in float seconds.
func (RealClock) NowSeconds() float64 { return Seconds(time.Now()) }

// Since returns the time elapsed since t.
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a manually controlled clock for deterministic tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a MockClock pinned to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowSeconds returns the mocked current time in float seconds.
func (c *MockClock) NowSeconds() float64 {
	return Seconds(c.Now())
}

// Since returns the duration since t according to the mock clock.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Set pins the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
