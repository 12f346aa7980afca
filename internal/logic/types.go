// Package logic contains the pure safety logic of the compressor interlock.
// This package has NO I/O dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// SystemState is the state of the fail-safe latch.
type SystemState string

const (
	StateNormal SystemState = "NORMAL"
	StateError  SystemState = "ERROR"
)

// TripReason identifies the safety condition that latched Error.
type TripReason string

const (
	TripRuntimeLimit TripReason = "runtime_limit"
	TripLinkTimeout  TripReason = "link_timeout"
)

// ResetPolicy selects how the latch may leave Error.
type ResetPolicy int

const (
	// ResetNever keeps Error until the process restarts (distributed nodes).
	ResetNever ResetPolicy = iota
	// ResetOnAirOff clears Error on a cycle where the air switch reads off
	// (single node).
	ResetOnAirOff
)

func (p ResetPolicy) String() string {
	switch p {
	case ResetNever:
		return "never"
	case ResetOnAirOff:
		return "air_off"
	default:
		return "unknown"
	}
}

// Input is one cycle's logical input snapshot.
type Input struct {
	AirOn             bool // true = switch in active position (already inverted)
	DrainOn           bool
	VentOn            bool
	CompressorRunning bool
	// LinkStale is the watchdog verdict for this cycle. Always false on the
	// single node.
	LinkStale bool
	Time      time.Time
}

// Outputs is the relay output vector.
type Outputs struct {
	Enable bool
	Dryer  bool
	Drain  bool
	Vent   bool
}

// AllOff reports whether every relay is de-energized.
func (o Outputs) AllOff() bool {
	return !o.Enable && !o.Dryer && !o.Drain && !o.Vent
}

// Timing holds the timing constants of the controller.
type Timing struct {
	CyclePeriod  time.Duration
	RuntimeLimit time.Duration
	Cooldown     time.Duration
	LinkTimeout  time.Duration
}

// DefaultTiming returns the shop defaults: 1s cycle, 5 minute runtime
// ceiling, 5 minute fan cooldown, 30s link timeout.
func DefaultTiming() Timing {
	return Timing{
		CyclePeriod:  time.Second,
		RuntimeLimit: 300 * time.Second,
		Cooldown:     300 * time.Second,
		LinkTimeout:  30 * time.Second,
	}
}

// CooldownCycles converts the cooldown duration into a number of cycles.
// The countdown is spent one cycle at a time, so it is counted in cycles.
func (t Timing) CooldownCycles() uint32 {
	if t.CyclePeriod <= 0 {
		return 0
	}
	return uint32(t.Cooldown / t.CyclePeriod)
}

// Trip records a latch transition into Error.
type Trip struct {
	Reason         TripReason
	Time           time.Time
	RuntimeSeconds uint32
}

// Result is the outcome of one controller cycle.
type Result struct {
	Outputs           Outputs
	State             SystemState
	RuntimeSeconds    uint32
	CooldownRemaining uint32

	// Tripped is set only on the cycle the latch entered Error.
	Tripped *Trip
	// Reset is set only on the cycle the latch left Error.
	Reset bool
}
