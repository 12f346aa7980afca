package gpio

import (
	"fmt"
	"time"

	"github.com/sweeney/compressor-interlock/internal/logic"
)

// Sampler turns raw input levels into a logical input snapshot.
type Sampler struct {
	pins  Pins
	lines InputLines
}

// NewSampler creates a Sampler for the given input wiring.
func NewSampler(pins Pins, lines InputLines) *Sampler {
	return &Sampler{pins: pins, lines: lines}
}

// Sample reads every wired input. Active-low inputs are inverted: raw low =
// logical true. Inputs that are not wired on this node read as false.
func (s *Sampler) Sample(now time.Time) (logic.Input, error) {
	in := logic.Input{Time: now}

	var err error
	if in.AirOn, err = s.read(s.lines.Air); err != nil {
		return logic.Input{}, err
	}
	if in.DrainOn, err = s.read(s.lines.Drain); err != nil {
		return logic.Input{}, err
	}
	if in.VentOn, err = s.read(s.lines.Vent); err != nil {
		return logic.Input{}, err
	}
	if in.CompressorRunning, err = s.read(s.lines.Compressor); err != nil {
		return logic.Input{}, err
	}
	return in, nil
}

func (s *Sampler) read(l Line) (bool, error) {
	if !l.Wired() {
		return false, nil
	}
	raw, err := s.pins.Read(l.Name)
	if err != nil {
		return false, fmt.Errorf("sample %s: %w", l.Name, err)
	}
	return raw != l.ActiveLow, nil
}
