package node

import (
	"time"

	"github.com/sweeney/compressor-interlock/internal/logic"
)

// Single is the one-box topology: every switch, the compressor signal and
// every relay are local. Error clears once the air switch reads off.
type Single struct {
	base
	ctrl *logic.Controller
}

// NewSingle creates a single-box node.
func NewSingle(o Options) *Single {
	return &Single{
		base: newBase("single", o),
		ctrl: logic.NewController(o.Timing, logic.ResetOnAirOff),
	}
}

// Cycle runs one control cycle.
func (s *Single) Cycle(now time.Time) {
	in, ok := s.sample(now)
	if !ok {
		return
	}
	res := s.ctrl.Process(in)
	s.apply(res)
	s.report(in, res, s.ctrl.TripCount(), s.ctrl.Cycles())
}

// State returns the latch state.
func (s *Single) State() logic.SystemState {
	return s.ctrl.State()
}
