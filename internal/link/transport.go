package link

import (
	"errors"
	"fmt"
)

// ErrLinkDown is returned by Transmit when the link is not up.
var ErrLinkDown = errors.New("link: down")

// Transport is a best-effort datagram channel to the peer node.
// Delivery and ordering are not guaranteed.
type Transport interface {
	// IsLinkUp reports whether the link is currently usable.
	IsLinkUp() bool

	// Send hands one payload to the link.
	Send(payload []byte) error

	// OnReceive registers the callback invoked for each incoming payload.
	// The callback runs on the transport's goroutine.
	OnReceive(handler func(payload []byte, sender string))

	// Close shuts the link down.
	Close() error
}

// Transmit sends payload if the link is up. When it is down nothing is sent
// or queued and ErrLinkDown is returned.
func Transmit(t Transport, payload []byte) error {
	if !t.IsLinkUp() {
		return ErrLinkDown
	}
	if err := t.Send(payload); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}
