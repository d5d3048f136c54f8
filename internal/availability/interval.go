// Package availability holds the time-of-day arithmetic the reservation
// engine is built on: half-open intervals, the overlap predicate, interval
// validation against a ground's opening hours, and busy-level
// classification.
package availability

import (
	"fmt"
	"time"
)

// Clock is a time of day expressed as minutes since midnight. Reservations
// never cross midnight, so a plain minute count keeps duration and ratio
// arithmetic exact.
type Clock int

func ClockOf(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockOf(t.Hour(), t.Minute()), nil
}

func (c Clock) Minutes() int { return int(c) }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Interval is a half-open time-of-day range [Start, End) on a single
// calendar date.
type Interval struct {
	Start Clock
	End   Clock
}

// Minutes returns the interval length.
func (iv Interval) Minutes() int {
	return iv.End.Minutes() - iv.Start.Minutes()
}

// Overlaps reports whether a and b share any time. Intervals that merely
// touch (a.End == b.Start) do not overlap; contiguous bookings are legal.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// InvalidIntervalError is a user-facing validation failure, not a system
// fault. Reason describes which rule broke.
type InvalidIntervalError struct {
	Interval Interval
	Reason   string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %s-%s: %s", e.Interval.Start, e.Interval.End, e.Reason)
}

// Validate checks an interval against a ground's opening hours. Valid iff
// Start < End, open <= Start and End <= close. Zero-length intervals are
// rejected here so they never reach the overlap predicate.
func Validate(iv Interval, open, close Clock) error {
	if iv.Start >= iv.End {
		return &InvalidIntervalError{Interval: iv, Reason: "start must be before end"}
	}
	if iv.Start < open {
		return &InvalidIntervalError{Interval: iv, Reason: fmt.Sprintf("starts before opening time %s", open)}
	}
	if iv.End > close {
		return &InvalidIntervalError{Interval: iv, Reason: fmt.Sprintf("ends after closing time %s", close)}
	}
	return nil
}
