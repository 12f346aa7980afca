package gpio

import (
	"go.uber.org/multierr"

	"github.com/sweeney/compressor-interlock/internal/logic"
)

// Driver writes the output vector and status indicators to pins.
type Driver struct {
	pins  Pins
	lines OutputLines
}

// NewDriver creates a Driver for the given output wiring.
func NewDriver(pins Pins, lines OutputLines) *Driver {
	return &Driver{pins: pins, lines: lines}
}

// Apply drives relays and indicators for one cycle. In Error every relay is
// off regardless of out, OK is off and Error is on. All writes are attempted;
// failures are combined into the returned error.
func (d *Driver) Apply(out logic.Outputs, state logic.SystemState) error {
	if state != logic.StateNormal {
		out = logic.Outputs{}
	}
	ok := state == logic.StateNormal

	return multierr.Combine(
		d.set(d.lines.Enable, out.Enable),
		d.set(d.lines.Dryer, out.Dryer),
		d.set(d.lines.Drain, out.Drain),
		d.set(d.lines.Vent, out.Vent),
		d.set(d.lines.OK, ok),
		d.set(d.lines.Error, !ok),
	)
}

// SafeOff de-energizes every relay and turns both indicators off.
func (d *Driver) SafeOff() error {
	var err error
	for _, l := range d.lines.All() {
		err = multierr.Append(err, d.set(l, false))
	}
	return err
}

// LampTest turns both indicators on with every relay off.
func (d *Driver) LampTest() error {
	var err error
	for _, l := range d.lines.Relays() {
		err = multierr.Append(err, d.set(l, false))
	}
	return multierr.Combine(err, d.set(d.lines.OK, true), d.set(d.lines.Error, true))
}

func (d *Driver) set(l Line, on bool) error {
	if !l.Wired() {
		return nil
	}
	return d.pins.Write(l.Name, on != l.ActiveLow)
}
