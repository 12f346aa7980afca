// Package status provides a thread-safe status tracker for the interlock daemon.
// It is written by the control loop and read by HTTP handlers and health checks.
package status

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/compressor-interlock/internal/logic"
)

// NetworkInfo contains host network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Role          string
	CyclePeriodMs int64
	RuntimeLimitS int64
	CooldownS     int64
	LinkTimeoutS  int64 // 0 on the single node
	Broker        string
	TopicPrefix   string
	HTTPAddr      string
}

// Cycle is what the control loop reports after every cycle.
type Cycle struct {
	Input     logic.Input
	Result    logic.Result
	TripCount int
	Cycles    uint64
}

// Link is the state of the node-to-node link.
type Link struct {
	Up       bool
	Received bool          // a valid message has arrived since start
	Age      time.Duration // since the last valid message, or since start
	Messages int
	Rejected int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State             logic.SystemState
	Input             logic.Input
	Outputs           logic.Outputs
	RuntimeSeconds    uint32
	CooldownRemaining uint32
	LastTrip          *logic.Trip
	TripCount         int
	Cycles            uint64
	LastCycle         time.Time
	Link              *Link // nil on the single node
	StartTime         time.Time
	Now               time.Time
	Network           *NetworkInfo
	Config            Config
	History           []Event
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	history *history
	now     func() time.Time
}

// NewTracker creates a Tracker with the given start time and config and
// records a STARTUP event.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		history: newHistory(DefaultHistory),
		now:     time.Now,
	}
	t.history.push(Event{Time: startTime, Kind: EventStartup, Detail: cfg.Role})
	return t
}

// Update stores the outcome of one cycle. Trips and resets are appended to
// the history.
func (t *Tracker) Update(c Cycle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.State = c.Result.State
	t.snap.Input = c.Input
	t.snap.Outputs = c.Result.Outputs
	t.snap.RuntimeSeconds = c.Result.RuntimeSeconds
	t.snap.CooldownRemaining = c.Result.CooldownRemaining
	t.snap.TripCount = c.TripCount
	t.snap.Cycles = c.Cycles
	t.snap.LastCycle = c.Input.Time

	if trip := c.Result.Tripped; trip != nil {
		cp := *trip
		t.snap.LastTrip = &cp
		t.history.push(Event{
			Time:   trip.Time,
			Kind:   EventTrip,
			Detail: fmt.Sprintf("%s after %ds", trip.Reason, trip.RuntimeSeconds),
		})
	}
	if c.Result.Reset {
		t.history.push(Event{Time: c.Input.Time, Kind: EventReset, Detail: "air switch off"})
	}
}

// SetLink stores the link state; up/down transitions are appended to the
// history.
func (t *Tracker) SetLink(at time.Time, l Link) {
	t.mu.Lock()
	defer t.mu.Unlock()

	wasUp := t.snap.Link != nil && t.snap.Link.Up
	switch {
	case l.Up && !wasUp:
		t.history.push(Event{Time: at, Kind: EventLinkUp})
	case !l.Up && wasUp:
		t.history.push(Event{Time: at, Kind: EventLinkDown})
	}
	t.snap.Link = &l
}

// Record appends an event to the history.
func (t *Tracker) Record(at time.Time, kind EventKind, detail string) {
	t.mu.Lock()
	t.history.push(Event{Time: at, Kind: kind, Detail: detail})
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.Link != nil {
		l := *s.Link
		s.Link = &l
	}
	s.History = t.history.items()
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
