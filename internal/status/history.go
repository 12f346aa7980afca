package status

import "time"

// EventKind names an entry in the event history.
type EventKind string

const (
	EventStartup  EventKind = "STARTUP"
	EventTrip     EventKind = "TRIP"
	EventReset    EventKind = "RESET"
	EventLinkUp   EventKind = "LINK_UP"
	EventLinkDown EventKind = "LINK_DOWN"
	EventShutdown EventKind = "SHUTDOWN"
)

// DefaultHistory is the number of events a Tracker keeps.
const DefaultHistory = 32

// Event is one entry in the event history.
type Event struct {
	Time   time.Time
	Kind   EventKind
	Detail string
}

// history is a fixed-capacity FIFO of recent events; the oldest entry is
// overwritten when full.
// Not safe for concurrent use; the Tracker holds its lock.
type history struct {
	buf      []Event
	capacity int
	head     int // next write position
	count    int
	dropped  int
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{
		buf:      make([]Event, capacity),
		capacity: capacity,
	}
}

func (h *history) push(e Event) {
	h.buf[h.head] = e
	h.head = (h.head + 1) % h.capacity
	if h.count == h.capacity {
		h.dropped++
		return
	}
	h.count++
}

// items returns the events oldest first without removing them.
func (h *history) items() []Event {
	if h.count == 0 {
		return nil
	}

	result := make([]Event, h.count)
	// Oldest item is at (head - count) mod capacity
	start := (h.head - h.count + h.capacity) % h.capacity
	for i := 0; i < h.count; i++ {
		result[i] = h.buf[(start+i)%h.capacity]
	}
	return result
}

func (h *history) len() int {
	return h.count
}
