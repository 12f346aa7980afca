package web

import (
	"errors"
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"

	"github.com/sweeney/compressor-interlock/internal/logic"
	"github.com/sweeney/compressor-interlock/internal/status"
)

// StallCycles is how many cycle periods may pass without a completed cycle
// before the control loop counts as stalled.
const StallCycles = 5

// HealthOptions configures NewHealth.
type HealthOptions struct {
	CyclePeriod time.Duration
	// LinkUp reports the transport state; nil on the single node.
	LinkUp func() bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewHealth builds the /live and /ready handler.
//
// Liveness fails when the control loop stalls. Readiness additionally fails
// while the latch is in Error (or before the first cycle) and, on distributed
// nodes, while the link is down.
func NewHealth(tracker *status.Tracker, opts HealthOptions) healthcheck.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	h.AddLivenessCheck("control-loop", func() error {
		snap := tracker.Snapshot()
		last := snap.LastCycle
		if last.IsZero() {
			last = snap.StartTime
		}
		limit := StallCycles * opts.CyclePeriod
		if age := now().Sub(last); age > limit {
			return fmt.Errorf("no cycle for %v (limit %v)", age.Truncate(time.Millisecond), limit)
		}
		return nil
	})
	h.AddReadinessCheck("latch", func() error {
		switch snap := tracker.Snapshot(); snap.State {
		case logic.StateNormal:
			return nil
		case logic.StateError:
			if snap.LastTrip != nil {
				return fmt.Errorf("latched in error: %s", snap.LastTrip.Reason)
			}
			return errors.New("latched in error")
		default:
			return errors.New("no cycle completed yet")
		}
	})
	if opts.LinkUp != nil {
		h.AddReadinessCheck("link", func() error {
			if !opts.LinkUp() {
				return errors.New("link down")
			}
			return nil
		})
	}
	return h
}
