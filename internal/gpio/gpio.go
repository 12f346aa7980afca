// Package gpio provides digital pin access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// ErrUnknownPin is returned when a pin name was never configured.
var ErrUnknownPin = errors.New("gpio: unknown pin")

// Pins reads and writes raw pin levels by name.
type Pins interface {
	// Read returns the raw level of an input pin (true = high).
	Read(name string) (bool, error)

	// Write sets the raw level of an output pin (true = high).
	Write(name string, high bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin names.
const (
	PinAirSwitch   = "air_switch"
	PinDrainSwitch = "drain_switch"
	PinVentSwitch  = "vent_switch"
	PinCompressor  = "compressor_running"

	PinEnableRelay = "enable_relay"
	PinDryerRelay  = "dryer_relay"
	PinDrainRelay  = "drain_relay"
	PinVentRelay   = "vent_relay"
	PinOKLED       = "ok_led"
	PinErrorLED    = "error_led"
)

// Line assigns a pin name to a GPIO line offset with its polarity.
type Line struct {
	Name      string
	Offset    int  // line offset on the chip (BCM number on a Pi), -1 = not wired
	ActiveLow bool // logical true is a low level
}

// Wired reports whether the pin is connected on this node.
func (l Line) Wired() bool {
	return l.Offset >= 0
}

// Unwired returns a placeholder line for a pin that is absent on this node.
func Unwired(name string) Line {
	return Line{Name: name, Offset: -1}
}

// InputLines are the sensor inputs of a node.
type InputLines struct {
	Air        Line
	Drain      Line
	Vent       Line
	Compressor Line
}

// All returns the inputs as a slice.
func (in InputLines) All() []Line {
	return []Line{in.Air, in.Drain, in.Vent, in.Compressor}
}

// OutputLines are the relay and indicator outputs of a node.
type OutputLines struct {
	Enable Line
	Dryer  Line
	Drain  Line
	Vent   Line
	OK     Line
	Error  Line
}

// All returns the outputs as a slice.
func (out OutputLines) All() []Line {
	return []Line{out.Enable, out.Dryer, out.Drain, out.Vent, out.OK, out.Error}
}

// Relays returns only the relay outputs.
func (out OutputLines) Relays() []Line {
	return []Line{out.Enable, out.Dryer, out.Drain, out.Vent}
}
