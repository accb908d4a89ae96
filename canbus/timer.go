package canbus

import "time"

// Timer is a monotonic-clock gate that fires at most once per Check call,
// absorbing missed periods without drift. It is meant to be owned by a
// single periodic loop; concurrent Check/Reset calls need external locking.
type Timer struct {
	period   time.Duration
	deadline time.Time
	logger   Logger
	now      func() time.Time
}

// NewTimer creates a timer that first fires one period from now. The period
// must be positive; like time.NewTicker, NewTimer panics otherwise.
func NewTimer(period time.Duration, logger Logger) *Timer {
	if period <= 0 {
		panic("canbus: non-positive period for NewTimer")
	}

	t := &Timer{
		period: period,
		logger: logger,
		now:    time.Now,
	}
	t.deadline = t.now().Add(period)
	return t
}

// Check reports whether the deadline has passed, at most once per call.
// When the caller fell behind by whole periods, the missed periods are
// absorbed in a single catch-up: the deadline advances past them and the
// event is logged, never escalated to an error.
func (t *Timer) Check() bool {
	now := t.now()
	if now.Before(t.deadline) {
		return false
	}

	missed := int(now.Sub(t.deadline) / t.period)
	if missed > 0 && t.logger != nil {
		t.logger.Warn("Timer catching up on %d missed period(s)", missed)
	}

	t.deadline = t.deadline.Add(time.Duration(missed+1) * t.period)
	return true
}

// Reset realigns the timer to fire one period from now, discarding any
// accumulated drift.
func (t *Timer) Reset() {
	t.deadline = t.now().Add(t.period)
}

// Period returns the configured firing period.
func (t *Timer) Period() time.Duration {
	return t.period
}
