package transport

import (
	"sync"
	"sync/atomic"
	"time"
)

// Base provides the state, handler, and emission plumbing shared by every
// backend. Embed it and call emit from the read loop.
type Base struct {
	state   atomic.Int32
	seq     atomic.Uint64
	mu      sync.RWMutex
	handler Handler
}

// State returns the current connection state.
func (b *Base) State() State {
	return State(b.state.Load())
}

// SetState transitions the backend's published state.
func (b *Base) SetState(s State) {
	b.state.Store(int32(s))
}

// CompareAndSetState transitions only from an expected state; reports
// whether the swap happened.
func (b *Base) CompareAndSetState(from, to State) bool {
	return b.state.CompareAndSwap(int32(from), int32(to))
}

// Subscribe registers the handler, replacing any previous one.
func (b *Base) Subscribe(h Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// EmitLine delivers one decoded line to the subscriber, stamping arrival
// order and time.
func (b *Base) EmitLine(text string) {
	b.mu.RLock()
	onLine := b.handler.OnLine
	b.mu.RUnlock()

	if onLine == nil {
		return
	}
	onLine(Line{
		Text:     text,
		Seq:      b.seq.Add(1),
		Received: time.Now(),
	})
}

// EmitError reports a mid-session stream failure to the subscriber.
func (b *Base) EmitError(err error) {
	b.mu.RLock()
	onError := b.handler.OnError
	b.mu.RUnlock()

	if onError != nil && err != nil {
		onError(err)
	}
}
