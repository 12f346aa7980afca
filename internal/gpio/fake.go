package gpio

import (
	"fmt"
	"sync"
)

// Write records a single pin write.
type Write struct {
	Name string
	High bool
}

// FakePins is an in-memory Pins for tests.
type FakePins struct {
	mu     sync.Mutex
	levels map[string]bool
	writes []Write

	// ReadError, if set, will be returned by Read.
	ReadError error

	// WriteError, if set, will be returned by Write.
	WriteError error

	closed bool
}

// NewFakePins creates FakePins with the given initial raw levels. Only the
// names present in levels (or written later) are known pins.
func NewFakePins(levels map[string]bool) *FakePins {
	f := &FakePins{levels: make(map[string]bool)}
	for name, high := range levels {
		f.levels[name] = high
	}
	return f
}

// Read returns the current raw level.
func (f *FakePins) Read(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, f.ReadError
	}
	high, ok := f.levels[name]
	if !ok {
		return false, fmt.Errorf("read %s: %w", name, ErrUnknownPin)
	}
	return high, nil
}

// Write records the write and updates the level.
func (f *FakePins) Write(name string, high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteError != nil {
		return f.WriteError
	}
	f.levels[name] = high
	f.writes = append(f.writes, Write{Name: name, High: high})
	return nil
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Set changes a raw level, as if the outside world moved a switch.
func (f *FakePins) Set(name string, high bool) {
	f.mu.Lock()
	f.levels[name] = high
	f.mu.Unlock()
}

// Level returns the current raw level of a pin.
func (f *FakePins) Level(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[name]
}

// Writes returns a copy of all recorded writes.
func (f *FakePins) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Write(nil), f.writes...)
}

// Closed reports whether Close was called.
func (f *FakePins) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Reset clears recorded writes and errors.
func (f *FakePins) Reset() {
	f.mu.Lock()
	f.writes = nil
	f.ReadError = nil
	f.WriteError = nil
	f.closed = false
	f.mu.Unlock()
}
