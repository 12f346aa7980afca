// Package link implements the message protocol between the shop and utility
// nodes: payload encoding, the receive record read by the watchdog, and the
// transport abstraction.
package link

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/sweeney/compressor-interlock/internal/logic"
)

// ErrEmptyPayload is returned when a payload has no JSON content.
var ErrEmptyPayload = errors.New("link: empty payload")

// RelayCommand is sent from the shop node to the utility node.
type RelayCommand struct {
	Enable bool `json:"enable"`
	Dryer  bool `json:"dryer"`
	Drain  bool `json:"drain"`
	Vent   bool `json:"vent"`
}

// CommandFromOutputs converts a controller output vector.
func CommandFromOutputs(o logic.Outputs) RelayCommand {
	return RelayCommand{Enable: o.Enable, Dryer: o.Dryer, Drain: o.Drain, Vent: o.Vent}
}

// Outputs converts the command back to an output vector.
func (c RelayCommand) Outputs() logic.Outputs {
	return logic.Outputs{Enable: c.Enable, Dryer: c.Dryer, Drain: c.Drain, Vent: c.Vent}
}

// SoundReport is sent from the utility node to the shop node.
// SoundLevel carries the compressor-running signal.
type SoundReport struct {
	SoundLevel bool `json:"soundlevel"`
}

// flag decodes a boolean field leniently: true/false, null (false), or a
// number (non-zero is true).
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	switch s {
	case "true":
		*f = true
	case "false", "null":
		*f = false
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid flag value %s", s)
		}
		*f = n != 0
	}
	return nil
}

type relayWire struct {
	Enable flag `json:"enable"`
	Dryer  flag `json:"dryer"`
	Drain  flag `json:"drain"`
	Vent   flag `json:"vent"`
}

type soundWire struct {
	SoundLevel flag `json:"soundlevel"`
}

// EncodeRelay serializes a relay command.
func EncodeRelay(c RelayCommand) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeRelay parses a relay command. Missing fields decode as false.
func DecodeRelay(payload []byte) (RelayCommand, error) {
	var w relayWire
	if err := unmarshal(payload, &w); err != nil {
		return RelayCommand{}, fmt.Errorf("decode relay command: %w", err)
	}
	return RelayCommand{
		Enable: bool(w.Enable),
		Dryer:  bool(w.Dryer),
		Drain:  bool(w.Drain),
		Vent:   bool(w.Vent),
	}, nil
}

// EncodeSound serializes a sound report.
func EncodeSound(r SoundReport) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeSound parses a sound report. A missing soundlevel decodes as false.
func DecodeSound(payload []byte) (SoundReport, error) {
	var w soundWire
	if err := unmarshal(payload, &w); err != nil {
		return SoundReport{}, fmt.Errorf("decode sound report: %w", err)
	}
	return SoundReport{SoundLevel: bool(w.SoundLevel)}, nil
}

// unmarshal strips the trailing NUL terminators some firmware appends.
func unmarshal(payload []byte, v any) error {
	payload = bytes.TrimSpace(bytes.TrimRight(payload, "\x00"))
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	return json.Unmarshal(payload, v)
}
