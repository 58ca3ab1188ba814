package netstream

import (
	"context"
	"io"
	"net/http"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/pkg/lineio"
)

// httpConn is the one-shot streaming read: a single GET whose chunked body
// is split into lines. Unidirectional; Write fails with an explicit
// unsupported error.
type httpConn struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (b *Backend) dialHTTP(ctx context.Context, rawURL string) (activeConn, error) {
	// The stream outlives the dial context; only the handshake is bounded
	// by it.
	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	type result struct {
		resp *http.Response
		err  error
	}
	results := make(chan result, 1)
	go func() {
		resp, err := b.httpClient.Do(req)
		results <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case r := <-results:
		if r.err != nil {
			cancel()
			return nil, r.err
		}
		if r.resp.StatusCode != http.StatusOK {
			_ = r.resp.Body.Close()
			cancel()
			return nil, errors.WrapTransient(
				errors.New("unexpected status "+r.resp.Status),
				"netstream", "Connect", "http response")
		}
		return &httpConn{body: r.resp.Body, cancel: cancel}, nil
	}
}

func (h *httpConn) close() error {
	h.cancel()
	return h.body.Close()
}

func (h *httpConn) bidirectional() bool {
	return false
}

func (h *httpConn) write([]byte) error {
	return errors.WrapInvalid(errors.ErrWriteUnsupported, "netstream", "Write", "http stream")
}

func (h *httpConn) readLoop(b *Backend, shutdown, done chan struct{}) {
	defer close(done)

	var splitter lineio.Splitter
	buf := make([]byte, 4096)

	for {
		n, err := h.body.Read(buf)
		if n > 0 {
			for _, line := range splitter.Push(buf[:n]) {
				b.emit(line)
			}
		}
		if err == nil {
			continue
		}

		select {
		case <-shutdown:
			// Teardown cancelled the request; stay quiet.
			return
		default:
		}

		// Stream end releases any held partial line before reporting.
		if line, ok := splitter.Flush(); ok {
			b.emit(line)
		}

		if err == io.EOF {
			err = errors.ErrConnectionLost
		}
		b.streamFailed(shutdown,
			errors.WrapTransient(err, "netstream", "readLoop", "http body read"))
		return
	}
}
