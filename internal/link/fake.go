package link

import "sync"

// FakeTransport records sent payloads and lets tests deliver incoming ones.
type FakeTransport struct {
	mu      sync.Mutex
	up      bool
	sent    [][]byte
	handler func(payload []byte, sender string)
	closed  bool

	// SendError, if set, will be returned by Send.
	SendError error
}

// NewFakeTransport creates a FakeTransport with the link up.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{up: true}
}

// IsLinkUp reports the scripted link state.
func (f *FakeTransport) IsLinkUp() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.up
}

// SetLinkUp changes the scripted link state.
func (f *FakeTransport) SetLinkUp(up bool) {
	f.mu.Lock()
	f.up = up
	f.mu.Unlock()
}

// Send records the payload.
func (f *FakeTransport) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendError != nil {
		return f.SendError
	}
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return nil
}

// OnReceive registers the receive callback.
func (f *FakeTransport) OnReceive(handler func(payload []byte, sender string)) {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
}

// Deliver invokes the receive callback as the transport would. It returns
// false if no callback is registered.
func (f *FakeTransport) Deliver(payload []byte, sender string) bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(payload, sender)
	return true
}

// Sent returns a copy of all sent payloads.
func (f *FakeTransport) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.sent...)
}

// Last returns the most recent payload, or nil.
func (f *FakeTransport) Last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// Close marks the transport as closed and the link as down.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.up = false
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Pair connects two fake transports back to back: whatever one sends is
// delivered to the other's callback, tagged with the sender's name.
type Pair struct {
	A, B *PairEnd
}

// PairEnd is one side of a Pair.
type PairEnd struct {
	*FakeTransport
	name string
	peer *PairEnd
}

// NewPair creates two connected transports named a and b.
func NewPair(a, b string) *Pair {
	ea := &PairEnd{FakeTransport: NewFakeTransport(), name: a}
	eb := &PairEnd{FakeTransport: NewFakeTransport(), name: b}
	ea.peer, eb.peer = eb, ea
	return &Pair{A: ea, B: eb}
}

// Send records the payload and delivers it to the peer.
func (e *PairEnd) Send(payload []byte) error {
	if err := e.FakeTransport.Send(payload); err != nil {
		return err
	}
	e.peer.Deliver(payload, e.name)
	return nil
}
