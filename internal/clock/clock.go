// Package clock abstracts "now" so date-threshold logic (due-date validation, overdue sweeps,
// reminder thresholds, month bucketing) can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"

	"github.com/segyhp/loan-tracker/pkg/utils"
)

// Clock supplies the current instant and the location calendar dates are evaluated in.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// Today returns midnight of the current calendar day in the clock's location.
func Today(c Clock) time.Time {
	return utils.StartOfDay(c.Now(), c.Location())
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a wall clock reporting time in loc (UTC when nil).
func NewSystem(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c *systemClock) Location() *time.Location { return c.loc }

// Fixed is a manually advanced clock for tests.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Location() *time.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Location()
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// AdvanceDays moves the clock forward by whole calendar days.
func (f *Fixed) AdvanceDays(days int) {
	f.mu.Lock()
	f.now = f.now.AddDate(0, 0, days)
	f.mu.Unlock()
}
