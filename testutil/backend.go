// Package testutil provides shared test fakes for the pipeline packages.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/transport"
)

// FakeBackend is a scripted transport backend for manager and pipeline
// tests. Tests drive it by setting the error/delay fields and by calling
// EmitLine/EmitError directly.
type FakeBackend struct {
	transport.Base

	KindVal      transport.Kind
	SupportedVal bool

	ConnectErr   error
	ConnectDelay time.Duration
	WriteErr     error

	// DisconnectGate, when set, makes Disconnect block until the channel
	// is closed. Set it before the call being gated.
	DisconnectGate chan struct{}

	mu              sync.Mutex
	connectCalls    int
	disconnectCalls int
	written         [][]byte
}

var _ transport.Backend = (*FakeBackend)(nil)

// NewFakeBackend creates a supported fake of the given kind.
func NewFakeBackend(kind transport.Kind) *FakeBackend {
	return &FakeBackend{KindVal: kind, SupportedVal: true}
}

// Kind implements transport.Backend.
func (f *FakeBackend) Kind() transport.Kind {
	return f.KindVal
}

// Supported implements transport.Backend.
func (f *FakeBackend) Supported() bool {
	return f.SupportedVal
}

// Connect honors ConnectDelay and ConnectErr, transitioning like a real
// backend.
func (f *FakeBackend) Connect(ctx context.Context, _ transport.Params) error {
	f.mu.Lock()
	f.connectCalls++
	f.mu.Unlock()

	f.SetState(transport.StateConnecting)

	if f.ConnectDelay > 0 {
		select {
		case <-ctx.Done():
			f.SetState(transport.StateDisconnected)
			return ctx.Err()
		case <-time.After(f.ConnectDelay):
		}
	}

	if f.ConnectErr != nil {
		f.SetState(transport.StateDisconnected)
		return f.ConnectErr
	}

	f.SetState(transport.StateConnected)
	return nil
}

// Disconnect implements transport.Backend.
func (f *FakeBackend) Disconnect() error {
	f.mu.Lock()
	f.disconnectCalls++
	gate := f.DisconnectGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.SetState(transport.StateDisconnected)
	return nil
}

// Write records data when connected.
func (f *FakeBackend) Write(data []byte) error {
	if f.WriteErr != nil {
		return f.WriteErr
	}
	if f.State() != transport.StateConnected {
		return errors.WrapInvalid(errors.ErrNotConnected, "fake", "Write", "state check")
	}
	f.mu.Lock()
	f.written = append(f.written, append([]byte(nil), data...))
	f.mu.Unlock()
	return nil
}

// ConnectCalls returns how many times Connect ran.
func (f *FakeBackend) ConnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connectCalls
}

// DisconnectCalls returns how many times Disconnect ran.
func (f *FakeBackend) DisconnectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnectCalls
}

// Written returns a copy of everything written through the backend.
func (f *FakeBackend) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

// LineCollector gathers sink deliveries for assertions.
type LineCollector struct {
	mu     sync.Mutex
	lines  []transport.Line
	errors []error
}

// Handler returns a sink handler recording into the collector.
func (c *LineCollector) Handler() transport.Handler {
	return transport.Handler{
		OnLine: func(l transport.Line) {
			c.mu.Lock()
			c.lines = append(c.lines, l)
			c.mu.Unlock()
		},
		OnError: func(err error) {
			c.mu.Lock()
			c.errors = append(c.errors, err)
			c.mu.Unlock()
		},
	}
}

// Texts returns the collected line texts in arrival order.
func (c *LineCollector) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	for i, l := range c.lines {
		out[i] = l.Text
	}
	return out
}

// Errors returns the collected stream errors.
func (c *LineCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errors...)
}

// WaitForLines polls until at least n lines arrived or the timeout expires.
func (c *LineCollector) WaitForLines(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		count := len(c.lines)
		c.mu.Unlock()
		if count >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
