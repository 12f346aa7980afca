package logic

// Cooldown keeps the vent fan running after the compressor stops.
//
// The countdown is armed on the falling edge of the compressor signal and is
// only spent on cycles where the vent switch is on. While the compressor runs
// the vent relay follows the vent switch directly.
type Cooldown struct {
	cycles      uint32
	remaining   uint32
	lastRunning bool
}

// NewCooldown creates a disarmed cooldown that runs for the given number of
// cycles once armed.
func NewCooldown(cycles uint32) *Cooldown {
	return &Cooldown{cycles: cycles}
}

// Update observes one cycle and returns whether the vent relay should be on.
func (c *Cooldown) Update(running, ventOn bool) bool {
	if c.lastRunning && !running {
		// Armed regardless of the vent switch position.
		c.remaining = c.cycles
	}
	c.lastRunning = running

	if running {
		return ventOn
	}

	if c.remaining > 0 && ventOn {
		c.remaining--
		return true
	}
	return false
}

// Remaining returns the cycles left on the countdown.
func (c *Cooldown) Remaining() uint32 {
	return c.remaining
}

// Active reports whether a countdown is armed.
func (c *Cooldown) Active() bool {
	return c.remaining > 0
}
