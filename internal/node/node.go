// Package node runs the control cycle of one interlock node: the single box,
// or the shop or utility half of the two-node pair.
package node

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/compressor-interlock/internal/gpio"
	"github.com/sweeney/compressor-interlock/internal/link"
	"github.com/sweeney/compressor-interlock/internal/logic"
	"github.com/sweeney/compressor-interlock/internal/metrics"
	"github.com/sweeney/compressor-interlock/internal/status"
)

// Node is one role's control cycle.
type Node interface {
	// Role returns the configured role name.
	Role() string

	// Cycle samples inputs, advances the safety logic and drives outputs once.
	Cycle(now time.Time)

	// LampTest lights both indicators with every relay off for d.
	LampTest(ctx context.Context, d time.Duration) error

	// Shutdown de-energizes every output.
	Shutdown(now time.Time) error
}

// Options are the collaborators shared by every role.
type Options struct {
	Timing  logic.Timing
	Pins    gpio.Pins
	Inputs  gpio.InputLines
	Outputs gpio.OutputLines
	Tracker *status.Tracker
	Metrics *metrics.Metrics
	Log     *zap.SugaredLogger
	// Start is when the node came up; the link watchdog measures from it
	// until the first message arrives.
	Start time.Time
	// Now stamps received messages. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) now() func() time.Time {
	if o.Now == nil {
		return time.Now
	}
	return o.Now
}

// Run cycles n on every tick until ctx is cancelled, then shuts it down.
func Run(ctx context.Context, n Node, now func() time.Time, tick <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return n.Shutdown(now())
		case <-tick:
			n.Cycle(now())
		}
	}
}

// base holds what every role shares.
type base struct {
	role    string
	sampler *gpio.Sampler
	driver  *gpio.Driver
	tracker *status.Tracker
	metrics *metrics.Metrics
	log     *zap.SugaredLogger
}

func newBase(role string, o Options) base {
	return base{
		role:    role,
		sampler: gpio.NewSampler(o.Pins, o.Inputs),
		driver:  gpio.NewDriver(o.Pins, o.Outputs),
		tracker: o.Tracker,
		metrics: o.Metrics,
		log:     o.Log.With("role", role),
	}
}

func (b *base) Role() string {
	return b.role
}

func (b *base) LampTest(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if err := b.driver.LampTest(); err != nil {
		return err
	}
	b.log.Infow("lamp test", "duration", d)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	return b.driver.SafeOff()
}

func (b *base) Shutdown(now time.Time) error {
	b.tracker.Record(now, status.EventShutdown, "")
	b.log.Infow("shutting down, all outputs off")
	return b.driver.SafeOff()
}

// sample reads the inputs; a failed read skips the cycle.
func (b *base) sample(now time.Time) (logic.Input, bool) {
	in, err := b.sampler.Sample(now)
	if err != nil {
		b.metrics.SampleError()
		b.log.Warnw("input read failed, skipping cycle", "err", err)
		return logic.Input{}, false
	}
	return in, true
}

func (b *base) apply(res logic.Result) {
	if err := b.driver.Apply(res.Outputs, res.State); err != nil {
		b.log.Errorw("output write failed", "err", err)
	}
}

func (b *base) send(t link.Transport, payload []byte, err error) bool {
	if err == nil {
		err = link.Transmit(t, payload)
	}
	switch {
	case errors.Is(err, link.ErrLinkDown):
		b.log.Warnw("link down, skipping send")
	case err != nil:
		b.log.Warnw("send failed", "err", err)
	}
	return err == nil
}

func (b *base) observeLink(now time.Time, t link.Transport, received bool, age time.Duration, count, rejected uint64) {
	up := t.IsLinkUp()
	b.metrics.ObserveLink(up, age)
	b.tracker.SetLink(now, status.Link{
		Up:       up,
		Received: received,
		Age:      age,
		Messages: int(count),
		Rejected: int(rejected),
	})
}

func (b *base) report(in logic.Input, res logic.Result, trips int, cycles uint64) {
	b.metrics.ObserveCycle(res)
	b.tracker.Update(status.Cycle{Input: in, Result: res, TripCount: trips, Cycles: cycles})

	if trip := res.Tripped; trip != nil {
		b.log.Errorw("TRIPPED: all relays off",
			"reason", trip.Reason,
			"runtime_s", trip.RuntimeSeconds,
		)
	}
	if res.Reset {
		b.log.Infow("air switch off, error cleared")
	}

	b.log.Infow("cycle",
		"state", res.State,
		"air", in.AirOn,
		"drain", in.DrainOn,
		"vent", in.VentOn,
		"compressor", in.CompressorRunning,
		"runtime_s", res.RuntimeSeconds,
		"cooldown", res.CooldownRemaining,
		"enable", res.Outputs.Enable,
		"dryer", res.Outputs.Dryer,
		"drain_relay", res.Outputs.Drain,
		"vent_relay", res.Outputs.Vent,
	)
}
