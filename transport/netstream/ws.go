package netstream

import (
	"context"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/c360/plotstream/errors"
)

// wsConn is the persistent WebSocket message socket: one line per received
// message, writes supported.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (b *Backend) dialWS(ctx context.Context, rawURL string) (activeConn, error) {
	c, resp, err := b.wsDialer.DialContext(ctx, rawURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: c}, nil
}

func (w *wsConn) close() error {
	return w.conn.Close()
}

func (w *wsConn) bidirectional() bool {
	return true
}

func (w *wsConn) write(data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.WrapTransient(err, "netstream", "Write", "websocket write")
	}
	return nil
}

func (w *wsConn) readLoop(b *Backend, shutdown, done chan struct{}) {
	defer close(done)

	for {
		_, payload, err := w.conn.ReadMessage()
		if err != nil {
			b.streamFailed(shutdown,
				errors.WrapTransient(err, "netstream", "readLoop", "websocket read"))
			return
		}

		// One message, one line; tolerate peers that terminate messages.
		text := strings.TrimRight(string(payload), "\r\n")
		b.emit(text)
	}
}
