package logic

import "time"

// RuntimeTimer tracks how long the compressor has been running continuously.
// Elapsed time is recomputed from the start instant each cycle, never
// accumulated, so irregular cycle timing does not drift.
type RuntimeTimer struct {
	limit   time.Duration
	running bool
	start   time.Time
	elapsed uint32
}

// NewRuntimeTimer creates an idle timer that trips at limit.
func NewRuntimeTimer(limit time.Duration) *RuntimeTimer {
	return &RuntimeTimer{limit: limit}
}

// Update advances the timer with the compressor state observed at now.
// A not-running to running edge is a fresh start: elapsed goes back to zero.
func (r *RuntimeTimer) Update(running bool, now time.Time) {
	if !running {
		r.running = false
		r.elapsed = 0
		return
	}

	if !r.running {
		r.running = true
		r.start = now
		r.elapsed = 0
		return
	}

	d := now.Sub(r.start)
	if d < 0 {
		d = 0
	}
	r.elapsed = uint32(d / time.Second)
}

// Running reports whether the compressor is considered running.
func (r *RuntimeTimer) Running() bool {
	return r.running
}

// ElapsedSeconds returns the whole seconds of the current run (0 when idle).
func (r *RuntimeTimer) ElapsedSeconds() uint32 {
	return r.elapsed
}

// Tripped reports whether the current run has reached the ceiling.
// Level-triggered: it stays true every cycle until the run ends.
func (r *RuntimeTimer) Tripped() bool {
	return r.running && time.Duration(r.elapsed)*time.Second >= r.limit
}
