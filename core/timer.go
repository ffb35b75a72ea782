package core

import "time"

// NoTimeout makes a wait spin until its condition holds.
const NoTimeout time.Duration = 0

// Deadline bounds a busy wait. The zero value never expires.
type Deadline struct {
	at  time.Time
	set bool
}

// NewDeadline starts a deadline timeout from now. A timeout of zero or less
// returns a deadline that never expires.
func NewDeadline(timeout time.Duration) Deadline {
	if timeout <= 0 {
		return Deadline{}
	}
	return Deadline{at: time.Now().Add(timeout), set: true}
}

// Expired reports whether the deadline has passed.
func (d Deadline) Expired() bool {
	return d.set && !time.Now().Before(d.at)
}

// Remaining returns the time left, or -1 for a deadline that never expires.
func (d Deadline) Remaining() time.Duration {
	if !d.set {
		return -1
	}
	left := time.Until(d.at)
	if left < 0 {
		return 0
	}
	return left
}

// WaitUntil polls cond, idling between polls, until it returns true or the
// deadline expires. It reports whether cond became true.
func WaitUntil(d Deadline, cond func() bool) bool {
	for !cond() {
		if d.Expired() {
			// The condition may have become true while the deadline ran out.
			return cond()
		}
		Idle()
	}
	return true
}
