// Package clock abstracts the current time so date-sensitive logic
// (statement availability, next occurrences) can be tested deterministically.
package clock

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// RealClock returns the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always returns T.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed time.
func (c FixedClock) Now() time.Time {
	return c.T
}

// NewReal returns a Clock backed by the system time.
func NewReal() Clock {
	return RealClock{}
}

// NewFixed returns a Clock that always reports t.
func NewFixed(t time.Time) Clock {
	return FixedClock{T: t}
}

// NewFixedDate returns a Clock fixed at noon UTC on d.
func NewFixedDate(d civil.Date) Clock {
	return FixedClock{T: time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)}
}

// Today returns the calendar date of c in its own location.
func Today(c Clock) civil.Date {
	return civil.DateOf(c.Now())
}
