//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

const consumer = "compressor-interlock"

var _ Pins = (*RealPins)(nil)

// RealPins drives GPIO lines on actual hardware using the Linux GPIO
// character device.
type RealPins struct {
	chip    *gpiocdev.Chip
	lines   map[string]*gpiocdev.Line
	outputs map[string]Line
}

// NewRealPins opens the chip and requests every wired line. Inputs get a
// bias that holds them inactive when the switch is open; outputs start
// inactive so no relay energizes before the first cycle.
func NewRealPins(chipName string, inputs, outputs []Line) (*RealPins, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	p := &RealPins{
		chip:    chip,
		lines:   make(map[string]*gpiocdev.Line),
		outputs: make(map[string]Line),
	}

	for _, l := range inputs {
		if !l.Wired() {
			continue
		}
		line, err := chip.RequestLine(l.Offset, gpiocdev.AsInput, inactiveBias(l))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", l.Name, l.Offset, err)
		}
		p.lines[l.Name] = line
	}

	for _, l := range outputs {
		if !l.Wired() {
			continue
		}
		line, err := chip.RequestLine(l.Offset, gpiocdev.AsOutput(inactiveValue(l)))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", l.Name, l.Offset, err)
		}
		p.lines[l.Name] = line
		p.outputs[l.Name] = l
	}

	return p, nil
}

// Read returns the raw level of the named line.
func (p *RealPins) Read(name string) (bool, error) {
	line, ok := p.lines[name]
	if !ok {
		return false, fmt.Errorf("read %s: %w", name, ErrUnknownPin)
	}
	v, err := line.Value()
	if err != nil {
		return false, fmt.Errorf("read %s pin: %w", name, err)
	}
	return v == 1, nil
}

// Write sets the raw level of the named output line.
func (p *RealPins) Write(name string, high bool) error {
	if _, ok := p.outputs[name]; !ok {
		return fmt.Errorf("write %s: %w", name, ErrUnknownPin)
	}
	v := 0
	if high {
		v = 1
	}
	if err := p.lines[name].SetValue(v); err != nil {
		return fmt.Errorf("write %s pin: %w", name, err)
	}
	return nil
}

// Close releases GPIO resources.
// Outputs are driven inactive and reconfigured as biased inputs before
// closing, so relay boards see a defined off level while the process is down.
func (p *RealPins) Close() error {
	var err error

	for name, line := range p.lines {
		if l, ok := p.outputs[name]; ok {
			if serr := line.SetValue(inactiveValue(l)); serr != nil {
				err = multierr.Append(err, fmt.Errorf("release %s pin: %w", name, serr))
			}
			if rerr := line.Reconfigure(gpiocdev.AsInput, inactiveBias(l)); rerr != nil {
				err = multierr.Append(err, fmt.Errorf("reconfigure %s pin: %w", name, rerr))
			}
		}
		if cerr := line.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close %s pin: %w", name, cerr))
		}
	}
	p.lines = map[string]*gpiocdev.Line{}

	if p.chip != nil {
		if cerr := p.chip.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close chip: %w", cerr))
		}
		p.chip = nil
	}

	return err
}

// inactiveValue is the raw level that means logical off.
func inactiveValue(l Line) int {
	if l.ActiveLow {
		return 1
	}
	return 0
}

// inactiveBias pulls the line towards its logical off level.
func inactiveBias(l Line) gpiocdev.LineBias {
	if l.ActiveLow {
		return gpiocdev.WithPullUp
	}
	return gpiocdev.WithPullDown
}
