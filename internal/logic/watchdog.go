package logic

import "time"

// Watchdog decides whether link data is too old to be trusted.
// Reception and enforcement are decoupled: the receive path only records
// instants, and Check is called from the cycle.
type Watchdog struct {
	timeout time.Duration
	start   time.Time
}

// NewWatchdog creates a watchdog. Until the first message arrives, age is
// measured from start.
func NewWatchdog(timeout time.Duration, start time.Time) *Watchdog {
	return &Watchdog{timeout: timeout, start: start}
}

// Check returns the age of the newest message and whether it is stale.
// received is false when nothing has arrived yet.
func (w *Watchdog) Check(lastReceive time.Time, received bool, now time.Time) (stale bool, age time.Duration) {
	last := w.start
	if received {
		last = lastReceive
	}
	age = now.Sub(last)
	return age > w.timeout, age
}

// Timeout returns the configured freshness window.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}
