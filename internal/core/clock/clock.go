// Package clock provides the time source used by timers and the timekeeper.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current absolute time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

// Now returns the current system time.
func (Real) Now() time.Time {
	return time.Now()
}

// Fake is a manually driven clock for tests and replays.
type Fake struct {
	mu      sync.Mutex
	current time.Time
}

// NewFake returns a Fake set to start.
func NewFake(start time.Time) *Fake {
	return &Fake{current: start}
}

// Now returns the fake time.
func (fake *Fake) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.current
}

// Advance moves the fake time forward by delta. A negative delta moves it back.
func (fake *Fake) Advance(delta time.Duration) {
	fake.mu.Lock()
	fake.current = fake.current.Add(delta)
	fake.mu.Unlock()
}

// Set jumps the fake time to t.
func (fake *Fake) Set(t time.Time) {
	fake.mu.Lock()
	fake.current = t
	fake.mu.Unlock()
}

var (
	_ Clock = Real{}
	_ Clock = (*Fake)(nil)
)
