// Package netstream provides the network stream backend. The URL scheme
// selects the sub-mode:
//
//   - ws:// or wss://: persistent WebSocket message socket, bidirectional,
//     one line per received message
//   - nats://: persistent NATS subscription on the subject named by the URL
//     path, bidirectional via publish
//   - http:// or https://: one-shot chunked streaming read, unidirectional,
//     lines split on line feed with CR stripped
//
// Every mode bounds its connection attempt with a timeout and reports
// mid-session failures by transitioning to disconnected and emitting a
// stream error.
package netstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/pkg/retry"
	"github.com/c360/plotstream/transport"
)

// DefaultConnectTimeout bounds connection attempts that receive no response.
const DefaultConnectTimeout = 10 * time.Second

// natsConnector dials a NATS server. Replaced in integration tests.
type natsConnector func(url string, opts ...nats.Option) (*nats.Conn, error)

// Deps holds runtime dependencies for the netstream backend.
type Deps struct {
	Logger      *slog.Logger
	HTTPClient  *http.Client       // nil selects a default client
	WSDialer    *websocket.Dialer  // nil selects websocket.DefaultDialer
	NATSConnect natsConnector      // nil selects nats.Connect
	RetryConfig *retry.Config      // nil selects retry.None()
}

// activeConn abstracts whatever the chosen sub-mode holds open.
type activeConn interface {
	close() error
	write(data []byte) error
	bidirectional() bool
	readLoop(b *Backend, shutdown, done chan struct{})
}

// Backend implements transport.Backend over a network stream.
type Backend struct {
	transport.Base

	logger      *slog.Logger
	httpClient  *http.Client
	wsDialer    *websocket.Dialer
	natsConnect natsConnector
	retryCfg    retry.Config

	mu       sync.Mutex
	conn     activeConn
	shutdown chan struct{}
	done     chan struct{}

	linesEmitted atomic.Int64
}

var _ transport.Backend = (*Backend)(nil)

// NewBackend creates a netstream backend.
func NewBackend(deps Deps) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "netstream")
	}
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	dialer := deps.WSDialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	connect := deps.NATSConnect
	if connect == nil {
		connect = nats.Connect
	}
	retryCfg := retry.None()
	if deps.RetryConfig != nil {
		retryCfg = *deps.RetryConfig
	}

	return &Backend{
		logger:      logger,
		httpClient:  client,
		wsDialer:    dialer,
		natsConnect: connect,
		retryCfg:    retryCfg,
	}
}

// Kind returns transport.KindNet.
func (b *Backend) Kind() transport.Kind {
	return transport.KindNet
}

// Supported reports whether network streaming is available.
func (b *Backend) Supported() bool {
	return true
}

// Connect dials the URL's sub-mode and starts its read loop. Any existing
// connection is torn down first.
func (b *Backend) Connect(ctx context.Context, p transport.Params) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.URL == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "netstream", "Connect", "url validation")
	}

	u, err := url.Parse(p.URL)
	if err != nil {
		return errors.WrapInvalid(err, "netstream", "Connect", "url parsing")
	}

	timeout := p.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	_ = b.Disconnect()
	b.SetState(transport.StateConnecting)

	var conn activeConn
	dial := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var dialErr error
		switch u.Scheme {
		case "ws", "wss":
			conn, dialErr = b.dialWS(dialCtx, p.URL)
		case "nats":
			conn, dialErr = b.dialNATS(dialCtx, u, timeout)
		case "http", "https":
			conn, dialErr = b.dialHTTP(dialCtx, p.URL)
		default:
			return retry.NonRetryable(errors.WrapInvalid(
				fmt.Errorf("unknown scheme %q", u.Scheme),
				"netstream", "Connect", "scheme dispatch"))
		}
		return normalizeDialError(dialErr)
	}

	if err := retry.Do(ctx, b.retryCfg, dial); err != nil {
		b.SetState(transport.StateDisconnected)
		return err
	}

	b.mu.Lock()
	b.conn = conn
	b.shutdown = make(chan struct{})
	b.done = make(chan struct{})
	shutdown, done := b.shutdown, b.done
	b.mu.Unlock()

	b.SetState(transport.StateConnected)
	b.logger.Info("netstream connected", "url", p.URL, "mode", u.Scheme)

	go conn.readLoop(b, shutdown, done)

	return nil
}

// normalizeDialError maps deadline failures onto the timeout sentinel so
// callers can classify them.
func normalizeDialError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.WrapTransient(errors.ErrConnectionTimeout, "netstream", "Connect", "dial")
	}
	return errors.WrapTransient(err, "netstream", "Connect", "dial")
}

// streamFailed records a mid-session failure: state first, then the error to
// the subscriber. Quiet when teardown raced the failure.
func (b *Backend) streamFailed(shutdown chan struct{}, err error) {
	select {
	case <-shutdown:
		return
	default:
	}
	b.SetState(transport.StateDisconnected)
	b.EmitError(err)
}

// Disconnect tears the active connection down, best-effort.
func (b *Backend) Disconnect() error {
	b.mu.Lock()
	conn, shutdown, done := b.conn, b.shutdown, b.done
	b.conn, b.shutdown, b.done = nil, nil, nil
	b.mu.Unlock()

	if shutdown != nil {
		close(shutdown)
	}
	if conn != nil {
		if err := conn.close(); err != nil {
			b.logger.Debug("netstream close", "error", err)
		}
	}
	if done != nil {
		<-done
	}

	b.SetState(transport.StateDisconnected)
	return nil
}

// Write sends data to the peer on bidirectional sub-modes. The one-shot
// HTTP stream rejects writes with ErrWriteUnsupported.
func (b *Backend) Write(data []byte) error {
	if b.State() != transport.StateConnected {
		return errors.WrapInvalid(errors.ErrNotConnected, "netstream", "Write", "state check")
	}

	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return errors.WrapInvalid(errors.ErrNotConnected, "netstream", "Write", "connection check")
	}
	if !conn.bidirectional() {
		return errors.WrapInvalid(errors.ErrWriteUnsupported, "netstream", "Write", "mode check")
	}
	return conn.write(data)
}

// Stats reports the number of lines emitted since creation.
func (b *Backend) Stats() int64 {
	return b.linesEmitted.Load()
}

func (b *Backend) emit(text string) {
	b.linesEmitted.Add(1)
	b.EmitLine(text)
}
