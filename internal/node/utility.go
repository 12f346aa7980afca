package node

import (
	"time"

	"github.com/sweeney/compressor-interlock/internal/link"
	"github.com/sweeney/compressor-interlock/internal/logic"
)

// Utility reads the compressor-running signal, reports it to the shop node
// and drives the relays from the latest relay command.
//
// Relays stay off until the first command arrives. A stale link latches
// Error for good: relays off, and no further reports, so the shop node's
// watchdog latches it too.
type Utility struct {
	base
	latch     *logic.Latch
	watchdog  *logic.Watchdog
	inbox     link.Inbox[link.RelayCommand]
	transport link.Transport
	cycles    uint64
}

// NewUtility creates a utility node and registers its receive handler on t.
func NewUtility(o Options, t link.Transport) *Utility {
	u := &Utility{
		base:      newBase("utility", o),
		latch:     logic.NewLatch(logic.ResetNever),
		watchdog:  logic.NewWatchdog(o.Timing.LinkTimeout, o.Start),
		transport: t,
	}
	decode := func(p []byte) (link.RelayCommand, error) {
		c, err := link.DecodeRelay(p)
		u.metrics.LinkMessage(err == nil)
		return c, err
	}
	t.OnReceive(u.inbox.Handler(decode, o.now(), u.log))
	return u
}

// Cycle runs one control cycle.
func (u *Utility) Cycle(now time.Time) {
	in, ok := u.sample(now)
	if !ok {
		return
	}
	u.cycles++

	rx := u.inbox.Snapshot()
	stale, age := u.watchdog.Check(rx.At, rx.Ok, now)
	in.LinkStale = stale

	res := logic.Result{State: u.latch.State()}
	if res.State == logic.StateNormal && stale {
		if u.latch.Trip(logic.TripLinkTimeout, now, 0) {
			res.Tripped = u.latch.LastTrip()
		}
		res.State = logic.StateError
	}
	if res.State == logic.StateNormal && rx.Ok {
		res.Outputs = rx.Message.Outputs()
	}

	u.apply(res)
	u.observeLink(now, u.transport, rx.Ok, age, rx.Count, rx.Rejected)

	if res.State == logic.StateNormal {
		payload, err := link.EncodeSound(link.SoundReport{SoundLevel: in.CompressorRunning})
		u.send(u.transport, payload, err)
	}

	u.report(in, res, u.latch.TripCount(), u.cycles)
}

// State returns the latch state.
func (u *Utility) State() logic.SystemState {
	return u.latch.State()
}
