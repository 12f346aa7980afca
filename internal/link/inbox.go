package link

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Received is a consistent copy of an Inbox.
type Received[T any] struct {
	Message  T
	At       time.Time // instant of the last accepted message
	Ok       bool      // false until the first message is accepted
	Count    uint64
	Rejected uint64
}

// Inbox holds the newest decoded message from the peer and when it arrived.
// It is written by the transport's receive callback and read by the cycle;
// the mutex makes every read see a whole message.
type Inbox[T any] struct {
	mu  sync.Mutex
	cur Received[T]
}

// Store records msg as received at at.
func (b *Inbox[T]) Store(msg T, at time.Time) {
	b.mu.Lock()
	b.cur.Message = msg
	b.cur.At = at
	b.cur.Ok = true
	b.cur.Count++
	b.mu.Unlock()
}

// Reject counts a payload that could not be decoded. It does not refresh
// the receive instant.
func (b *Inbox[T]) Reject() {
	b.mu.Lock()
	b.cur.Rejected++
	b.mu.Unlock()
}

// Snapshot returns a copy of the current record.
func (b *Inbox[T]) Snapshot() Received[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

// Handler returns a receive callback that decodes payloads into the inbox.
func (b *Inbox[T]) Handler(decode func([]byte) (T, error), now func() time.Time, log *zap.SugaredLogger) func(payload []byte, sender string) {
	return func(payload []byte, sender string) {
		msg, err := decode(payload)
		if err != nil {
			b.Reject()
			log.Warnw("dropping undecodable message", "sender", sender, "err", err)
			return
		}
		b.Store(msg, now())
		log.Debugw("received", "sender", sender, "message", msg)
	}
}
