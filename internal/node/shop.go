package node

import (
	"time"

	"github.com/sweeney/compressor-interlock/internal/link"
	"github.com/sweeney/compressor-interlock/internal/logic"
)

// Shop reads the operator switches, takes the compressor-running signal
// from the utility node's reports, runs the safety logic and sends the
// resulting relay command every cycle.
//
// Once latched in Error it sends a single all-off command and then stays
// silent, so the utility node's watchdog latches it too.
type Shop struct {
	base
	ctrl      *logic.Controller
	watchdog  *logic.Watchdog
	inbox     link.Inbox[link.SoundReport]
	transport link.Transport
	finalSent bool
}

// NewShop creates a shop node and registers its receive handler on t.
func NewShop(o Options, t link.Transport) *Shop {
	s := &Shop{
		base:      newBase("shop", o),
		ctrl:      logic.NewController(o.Timing, logic.ResetNever),
		watchdog:  logic.NewWatchdog(o.Timing.LinkTimeout, o.Start),
		transport: t,
	}
	decode := func(p []byte) (link.SoundReport, error) {
		r, err := link.DecodeSound(p)
		s.metrics.LinkMessage(err == nil)
		return r, err
	}
	t.OnReceive(s.inbox.Handler(decode, o.now(), s.log))
	return s
}

// Cycle runs one control cycle.
func (s *Shop) Cycle(now time.Time) {
	in, ok := s.sample(now)
	if !ok {
		return
	}

	rx := s.inbox.Snapshot()
	in.CompressorRunning = rx.Ok && rx.Message.SoundLevel
	stale, age := s.watchdog.Check(rx.At, rx.Ok, now)
	in.LinkStale = stale

	res := s.ctrl.Process(in)
	s.apply(res)
	s.observeLink(now, s.transport, rx.Ok, age, rx.Count, rx.Rejected)

	if res.State == logic.StateNormal || !s.finalSent {
		payload, err := link.EncodeRelay(link.CommandFromOutputs(res.Outputs))
		sent := s.send(s.transport, payload, err)
		if res.State == logic.StateError && sent {
			s.finalSent = true
			s.log.Warnw("sent all-off command, link now silent")
		}
	}

	s.report(in, res, s.ctrl.TripCount(), s.ctrl.Cycles())
}

// Shutdown sends an all-off command and de-energizes local outputs.
func (s *Shop) Shutdown(now time.Time) error {
	payload, err := link.EncodeRelay(link.RelayCommand{})
	s.send(s.transport, payload, err)
	return s.base.Shutdown(now)
}

// State returns the latch state.
func (s *Shop) State() logic.SystemState {
	return s.ctrl.State()
}
