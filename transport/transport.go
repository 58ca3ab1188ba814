package transport

import (
	"context"
	"time"
)

// Kind identifies a transport backend.
type Kind string

const (
	// KindNone means no transport is active.
	KindNone Kind = ""
	// KindSerial is the point-to-point serial link.
	KindSerial Kind = "serial"
	// KindNet is the network stream (WebSocket, NATS, or HTTP by scheme).
	KindNet Kind = "net"
	// KindSynth is the synthetic waveform generator.
	KindSynth Kind = "synth"
)

// State is a backend's connection state.
type State int32

const (
	// StateDisconnected means no connection exists or the last one ended.
	StateDisconnected State = iota
	// StateConnecting means a connection attempt is in flight.
	StateConnecting
	// StateConnected means the backend is delivering lines.
	StateConnected
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Line is one decoded textual record emitted by a backend. Text never
// contains a line feed; a trailing carriage return has been stripped.
type Line struct {
	Text     string
	Seq      uint64
	Received time.Time
}

// Handler receives a backend's output. OnLine is called once per decoded
// line in arrival order; OnError is called for mid-session stream failures
// (the backend transitions to disconnected before calling it). Either field
// may be nil.
type Handler struct {
	OnLine  func(Line)
	OnError func(error)
}

// Params carries backend-specific connection parameters. Each backend reads
// only the fields it understands.
type Params struct {
	// Serial
	Device   string
	Baud     int
	DataBits int
	Parity   string
	StopBits int
	Framing  string // "lines" (default) or "cobs" for zero-delimited binary frames

	// Net: scheme selects the sub-mode (ws/wss, nats, http/https)
	URL            string
	ConnectTimeout time.Duration

	// Synth
	Synth SynthParams
}

// SynthParams shapes the synthetic generator's output.
type SynthParams struct {
	Channels  int     // number of generated series
	Rate      float64 // lines per second
	Shape     string  // sine, square, sawtooth, triangle, noise
	Frequency float64 // waveform cycles per second
	Amplitude float64
}

// Backend is one interchangeable line-producing data source. Implementations
// are safe for concurrent use; exactly one of them is driven by the
// connection manager at a time.
type Backend interface {
	// Kind returns the backend's identity.
	Kind() Kind

	// Supported reports whether the runtime environment can operate this
	// transport at all. Capability problems are reported here, not as
	// connect errors.
	Supported() bool

	// State returns the current connection state.
	State() State

	// Connect establishes the transport. It blocks until the connection is
	// usable or fails, bounded by ctx and the params' timeout. On failure
	// the backend is left disconnected.
	Connect(ctx context.Context, p Params) error

	// Disconnect tears the transport down, best-effort. The read loop stops
	// emitting lines before Disconnect returns.
	Disconnect() error

	// Subscribe registers the handler receiving emitted lines and stream
	// errors. Replaces any previous handler.
	Subscribe(h Handler)

	// Write sends raw bytes to the peer on bidirectional transports; others
	// return errors.ErrWriteUnsupported.
	Write(data []byte) error
}
