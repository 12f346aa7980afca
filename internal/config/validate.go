package config

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/sweeney/compressor-interlock/internal/gpio"
	"github.com/sweeney/compressor-interlock/internal/logging"
)

// Validate checks the configuration. Every problem found is reported; each
// wraps ErrInvalid.
func (c *Config) Validate() error {
	var err error
	fail := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if !c.Role.valid() {
		fail("role %q (want single, shop or utility)", c.Role)
		return err
	}

	switch c.LogLevel {
	case logging.DebugLevel, logging.InfoLevel, logging.WarnLevel, logging.ErrorLevel:
	default:
		fail("log.level %q", c.LogLevel)
	}

	t := c.Timing
	if t.CyclePeriod <= 0 {
		fail("timing.cycle_period must be positive, got %v", t.CyclePeriod)
	}
	if t.RuntimeLimit <= 0 {
		fail("timing.runtime_limit must be positive, got %v", t.RuntimeLimit)
	}
	if t.CyclePeriod > 0 && t.Cooldown < t.CyclePeriod {
		fail("timing.cooldown %v is shorter than one cycle (%v)", t.Cooldown, t.CyclePeriod)
	}

	if c.Role.Distributed() {
		if t.LinkTimeout <= 0 {
			fail("timing.link_timeout must be positive, got %v", t.LinkTimeout)
		}
		if c.Link.Broker == "" {
			fail("link.broker is required for role %s", c.Role)
		}
		if c.Link.ConnectTimeout <= 0 {
			fail("link.connect_timeout must be positive, got %v", c.Link.ConnectTimeout)
		}
	}

	for _, l := range c.requiredLines() {
		if !l.Wired() {
			fail("pin %s must be wired for role %s", l.Name, c.Role)
		}
	}

	seen := make(map[int]string)
	for _, l := range append(c.GPIO.Inputs.All(), c.GPIO.Outputs.All()...) {
		if !l.Wired() {
			continue
		}
		if other, dup := seen[l.Offset]; dup {
			fail("pins %s and %s share line %d", other, l.Name, l.Offset)
			continue
		}
		seen[l.Offset] = l.Name
	}

	return err
}

func (c *Config) requiredLines() []gpio.Line {
	in, out := c.GPIO.Inputs, c.GPIO.Outputs
	switch c.Role {
	case RoleSingle:
		return append([]gpio.Line{in.Air, in.Drain, in.Vent, in.Compressor}, out.Relays()...)
	case RoleShop:
		return []gpio.Line{in.Air, in.Drain, in.Vent}
	case RoleUtility:
		return append([]gpio.Line{in.Compressor}, out.Relays()...)
	}
	return nil
}
