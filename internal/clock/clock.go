// Package clock abstracts the time source so timers can be driven by tests.
package clock

import "time"

// Clock provides the current time and one-shot deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancelable one-shot callback. Stop reports whether the call
// stopped the timer; stopping a fired or stopped timer is a no-op.
type Timer interface {
	Stop() bool
}

// Real is the wall clock, optionally pinned to a location.
type Real struct {
	Location *time.Location
}

func (r Real) Now() time.Time {
	now := time.Now()
	if r.Location != nil {
		return now.In(r.Location)
	}
	return now
}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
