package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/metric"
	"github.com/c360/plotstream/pkg/buffer"
	"github.com/c360/plotstream/transport"
)

// DefaultQueueCapacity bounds the line queue between backends and the sink.
const DefaultQueueCapacity = 4096

// Status is the externally visible reduction of all backend states.
type Status struct {
	Active     transport.Kind // active transport kind, KindNone when idle
	Connecting bool
	Connected  bool
	Supported  bool // whether every backend type is available here
	LastError  string
}

// Deps holds runtime dependencies for the connection manager.
type Deps struct {
	Backends        []transport.Backend
	Sink            transport.Handler
	Logger          *slog.Logger
	MetricsRegistry *metric.MetricsRegistry
	QueueCapacity   int
}

// Manager is the mutual-exclusion state machine selecting exactly one
// backend at a time and forwarding its lines to one caller-supplied sink.
// Create exactly one Manager per store: its sink is the store's single
// writer.
type Manager struct {
	logger   *slog.Logger
	backends map[transport.Kind]transport.Backend
	order    []transport.Kind

	queue *buffer.Queue[transport.Line]
	sink  transport.Handler

	// generation increments on every connect/disconnect; an attempt whose
	// generation is stale has been superseded and its result is discarded.
	generation atomic.Uint64

	mu      sync.RWMutex
	active  transport.Kind
	lastErr string

	// teardownMu serializes previous-backend teardown across overlapping
	// connect attempts so a stale attempt never touches a backend the
	// newest attempt owns.
	teardownMu sync.Mutex

	cancelForward context.CancelFunc
	forwardDone   chan struct{}
	closeOnce     sync.Once

	connects atomic.Int64
}

// NewManager wires the backends to the sink through one bounded queue and
// starts the forwarding loop.
func NewManager(deps Deps) (*Manager, error) {
	if len(deps.Backends) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"manager", "NewManager", "backends validation")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "manager")
	}

	capacity := deps.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	var queueOpts []buffer.Option[transport.Line]
	queueOpts = append(queueOpts, buffer.WithOverflowPolicy[transport.Line](buffer.DropOldest))
	if deps.MetricsRegistry != nil {
		queueOpts = append(queueOpts, buffer.WithMetrics[transport.Line](deps.MetricsRegistry, "manager"))
	}
	queue, err := buffer.NewQueue[transport.Line](capacity, queueOpts...)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		logger:      logger,
		backends:    make(map[transport.Kind]transport.Backend, len(deps.Backends)),
		queue:       queue,
		sink:        deps.Sink,
		forwardDone: make(chan struct{}),
	}

	for _, b := range deps.Backends {
		kind := b.Kind()
		if _, dup := m.backends[kind]; dup {
			return nil, errors.WrapInvalid(
				fmt.Errorf("duplicate backend kind %q", kind),
				"manager", "NewManager", "backend registration")
		}
		m.backends[kind] = b
		m.order = append(m.order, kind)
		m.subscribe(b)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelForward = cancel
	go m.forward(ctx)

	return m, nil
}

// subscribe routes one backend's emissions into the queue, gated on the
// backend still being the active one at enqueue time.
func (m *Manager) subscribe(b transport.Backend) {
	kind := b.Kind()
	b.Subscribe(transport.Handler{
		OnLine: func(line transport.Line) {
			if m.ActiveKind() != kind {
				return // stale backend, switched away
			}
			_ = m.queue.Write(line)
		},
		OnError: func(err error) {
			m.streamError(kind, err)
		},
	})
}

// forward drains the queue into the sink, preserving arrival order across
// backend switches.
func (m *Manager) forward(ctx context.Context) {
	defer close(m.forwardDone)
	for {
		line, err := m.queue.Read(ctx)
		if err != nil {
			return
		}
		if m.sink.OnLine != nil {
			m.sink.OnLine(line)
		}
	}
}

// streamError records a mid-session failure of the active backend and
// reverts to idle. Errors from superseded backends are ignored.
func (m *Manager) streamError(kind transport.Kind, err error) {
	m.mu.Lock()
	if m.active != kind {
		m.mu.Unlock()
		return
	}
	m.active = transport.KindNone
	m.lastErr = err.Error()
	m.mu.Unlock()

	m.logger.Warn("active transport failed", "kind", kind, "error", err)
	if m.sink.OnError != nil {
		m.sink.OnError(err)
	}
}

// Connect selects the backend for kind, tearing down whatever was connected
// or connecting before. A new Connect always supersedes an in-flight one:
// the superseded attempt's result is discarded when it resolves. On failure
// the manager reverts to idle, records the error, and returns it.
func (m *Manager) Connect(ctx context.Context, kind transport.Kind, p transport.Params) error {
	b, ok := m.backends[kind]
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("unknown transport kind %q", kind),
			"manager", "Connect", "kind lookup")
	}

	gen := m.generation.Add(1)
	attempt := uuid.NewString()[:8]
	m.connects.Add(1)

	m.mu.Lock()
	prevKind := m.active
	m.active = kind
	m.lastErr = "" // cleared on every new connection attempt
	m.mu.Unlock()

	// Best-effort teardown of the previous backend; its errors must never
	// block the new connection. Only the newest attempt may tear down:
	// once superseded, prevKind may be the kind a later attempt owns.
	m.teardownMu.Lock()
	if m.generation.Load() == gen && prevKind != transport.KindNone && prevKind != kind {
		if prev, ok := m.backends[prevKind]; ok {
			_ = prev.Disconnect()
		}
	}
	m.teardownMu.Unlock()

	m.logger.Info("connecting", "kind", kind, "attempt", attempt)
	err := b.Connect(ctx, p)

	if m.generation.Load() != gen {
		// A newer connect or disconnect took over while we were dialing.
		if err == nil && m.ActiveKind() != kind {
			_ = b.Disconnect()
		}
		m.logger.Debug("connection attempt superseded", "kind", kind, "attempt", attempt)
		return errors.WrapInvalid(errors.ErrAttemptSuperseded, "manager", "Connect", "generation check")
	}

	if err != nil {
		m.mu.Lock()
		if m.active == kind {
			m.active = transport.KindNone
		}
		m.lastErr = err.Error()
		m.mu.Unlock()
		return err
	}

	m.logger.Info("connected", "kind", kind, "attempt", attempt)
	return nil
}

// Disconnect tears down whichever backend is active and returns to idle.
// Always best-effort; never fails.
func (m *Manager) Disconnect() {
	m.generation.Add(1) // supersede any in-flight attempt

	m.mu.Lock()
	kind := m.active
	m.active = transport.KindNone
	m.mu.Unlock()

	if kind == transport.KindNone {
		return
	}
	if b, ok := m.backends[kind]; ok {
		_ = b.Disconnect()
	}
	m.logger.Info("disconnected", "kind", kind)
}

// Write sends data through the connected backend. Fails unless a
// bidirectional backend is currently connected.
func (m *Manager) Write(data []byte) error {
	m.mu.RLock()
	kind := m.active
	m.mu.RUnlock()

	if kind == transport.KindNone {
		return errors.WrapInvalid(errors.ErrNotConnected, "manager", "Write", "no active transport")
	}
	b := m.backends[kind]
	if b.State() != transport.StateConnected {
		return errors.WrapInvalid(errors.ErrNotConnected, "manager", "Write", "state check")
	}
	return b.Write(data)
}

// ActiveKind returns the currently selected transport kind, KindNone when
// idle.
func (m *Manager) ActiveKind() transport.Kind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// Status reduces all backend states to the single externally visible record.
func (m *Manager) Status() Status {
	m.mu.RLock()
	active := m.active
	lastErr := m.lastErr
	m.mu.RUnlock()

	st := Status{
		Active:    active,
		Supported: true,
		LastError: lastErr,
	}
	for _, kind := range m.order {
		b := m.backends[kind]
		if !b.Supported() {
			st.Supported = false
		}
		switch b.State() {
		case transport.StateConnecting:
			st.Connecting = true
		case transport.StateConnected:
			st.Connected = true
		}
	}
	return st
}

// Close disconnects and stops the forwarding loop. Queued lines not yet
// delivered are dropped.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.Disconnect()
		m.cancelForward()
		<-m.forwardDone
		m.queue.Close()
	})
}
