package logic

import (
	"context"
	"errors"
	"time"

	"github.com/looplab/fsm"
)

// ErrTerminal is returned by Reset when the latch has no software reset path.
var ErrTerminal = errors.New("latch: error state is terminal until power cycle")

const (
	eventTrip  = "trip"
	eventReset = "reset"
)

// Latch is the fail-safe Normal/Error machine. Once tripped it stays in Error
// until Reset succeeds, which depends on the reset policy.
type Latch struct {
	machine *fsm.FSM
	policy  ResetPolicy
	last    *Trip
	trips   int
}

// NewLatch creates a latch in Normal.
func NewLatch(policy ResetPolicy) *Latch {
	l := &Latch{policy: policy}
	l.machine = fsm.NewFSM(
		string(StateNormal),
		fsm.Events{
			{Name: eventTrip, Src: []string{string(StateNormal)}, Dst: string(StateError)},
			{Name: eventReset, Src: []string{string(StateError)}, Dst: string(StateNormal)},
		},
		fsm.Callbacks{
			"before_" + eventReset: func(_ context.Context, e *fsm.Event) {
				if l.policy == ResetNever {
					e.Cancel(ErrTerminal)
				}
			},
		},
	)
	return l
}

// State returns the current latch state.
func (l *Latch) State() SystemState {
	return SystemState(l.machine.Current())
}

// Policy returns the reset policy.
func (l *Latch) Policy() ResetPolicy {
	return l.policy
}

// Trip moves the latch to Error. It returns false if the latch was already in
// Error, in which case the original trip is kept.
func (l *Latch) Trip(reason TripReason, now time.Time, runtimeSeconds uint32) bool {
	if l.State() == StateError {
		return false
	}
	if err := l.machine.Event(context.Background(), eventTrip); err != nil {
		return false
	}
	l.last = &Trip{Reason: reason, Time: now, RuntimeSeconds: runtimeSeconds}
	l.trips++
	return true
}

// Reset moves the latch back to Normal. It is a no-op in Normal and returns
// ErrTerminal when the policy forbids leaving Error.
func (l *Latch) Reset() error {
	if l.State() == StateNormal {
		return nil
	}
	err := l.machine.Event(context.Background(), eventReset)
	if err == nil {
		return nil
	}
	var canceled fsm.CanceledError
	if errors.As(err, &canceled) && canceled.Err != nil {
		return canceled.Err
	}
	return err
}

// LastTrip returns the most recent trip, or nil if the latch never tripped.
func (l *Latch) LastTrip() *Trip {
	if l.last == nil {
		return nil
	}
	t := *l.last
	return &t
}

// TripCount returns the number of trips since creation.
func (l *Latch) TripCount() int {
	return l.trips
}
