// Package clock is the single source of truth for "now" (spec.md §4.1).
// Every component that needs wall time takes a Clock instead of calling
// time.Now directly, so tests can inject arbitrary instants.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by time.Now, located in the given zone.
type Real struct {
	loc *time.Location
}

// NewReal returns a Real clock that reports times in loc.
func NewReal(loc *time.Location) *Real {
	return &Real{loc: loc}
}

// Now returns the current time in the clock's configured zone.
func (r *Real) Now() time.Time {
	return time.Now().In(r.loc)
}

// Fake is a settable Clock for tests.
type Fake struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFake returns a Fake clock initialized to t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now returns the fake clock's current value.
func (f *Fake) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set moves the fake clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
