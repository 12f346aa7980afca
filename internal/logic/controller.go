package logic

// Controller owns the runtime timer, fan cooldown and fail-safe latch of one
// node and derives the output vector every cycle.
type Controller struct {
	timing   Timing
	runtime  *RuntimeTimer
	cooldown *Cooldown
	latch    *Latch
	cycles   uint64
}

// NewController creates a controller in Normal with idle timers.
func NewController(timing Timing, policy ResetPolicy) *Controller {
	return &Controller{
		timing:   timing,
		runtime:  NewRuntimeTimer(timing.RuntimeLimit),
		cooldown: NewCooldown(timing.CooldownCycles()),
		latch:    NewLatch(policy),
	}
}

// Process runs one control cycle.
//
// While the latch is in Error the control logic is suspended: timers do not
// advance and every relay is off. Under ResetOnAirOff the latch is re-checked
// on each later cycle and clears once the air switch reads off; normal
// processing resumes on the cycle after that.
func (c *Controller) Process(in Input) Result {
	c.cycles++

	if c.latch.State() == StateError {
		res := Result{
			State:             StateError,
			RuntimeSeconds:    c.runtime.ElapsedSeconds(),
			CooldownRemaining: c.cooldown.Remaining(),
		}
		if c.latch.Policy() == ResetOnAirOff && !in.AirOn {
			if err := c.latch.Reset(); err == nil {
				res.State = StateNormal
				res.Reset = true
			}
		}
		return res
	}

	c.runtime.Update(in.CompressorRunning, in.Time)
	vent := c.cooldown.Update(in.CompressorRunning, in.VentOn)

	res := Result{
		Outputs: Outputs{
			Enable: in.AirOn,
			Dryer:  in.AirOn,
			Drain:  in.DrainOn,
			Vent:   vent,
		},
		State:             StateNormal,
		RuntimeSeconds:    c.runtime.ElapsedSeconds(),
		CooldownRemaining: c.cooldown.Remaining(),
	}

	var reason TripReason
	switch {
	case c.runtime.Tripped():
		reason = TripRuntimeLimit
	case in.LinkStale:
		reason = TripLinkTimeout
	}
	if reason == "" {
		return res
	}

	if c.latch.Trip(reason, in.Time, res.RuntimeSeconds) {
		res.Tripped = c.latch.LastTrip()
	}
	res.State = StateError
	res.Outputs = Outputs{}
	return res
}

// State returns the latch state.
func (c *Controller) State() SystemState {
	return c.latch.State()
}

// LastTrip returns the most recent trip, or nil.
func (c *Controller) LastTrip() *Trip {
	return c.latch.LastTrip()
}

// TripCount returns the number of trips since start.
func (c *Controller) TripCount() int {
	return c.latch.TripCount()
}

// Cycles returns the number of processed cycles.
func (c *Controller) Cycles() uint64 {
	return c.cycles
}

// Timing returns the timing constants in use.
func (c *Controller) Timing() Timing {
	return c.timing
}
