package netstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/plotstream/errors"
)

// natsConn is the persistent NATS message socket. Incoming messages on the
// subscribed subject become lines; writes publish to a companion subject so
// the backend never hears its own output.
type natsConn struct {
	nc          *nats.Conn
	sub         *nats.Subscription
	readSubject string
	txSubject   string
	messages    chan *nats.Msg
}

// subjectsFromURL derives the subscription subject from the URL path and the
// write subject from the "tx" query parameter (defaulting to
// "<subject>.cmd").
func subjectsFromURL(u *url.URL) (readSubject, txSubject string, err error) {
	readSubject = strings.Trim(u.Path, "/")
	if readSubject == "" {
		return "", "", fmt.Errorf("nats url %q carries no subject path", u.String())
	}
	txSubject = u.Query().Get("tx")
	if txSubject == "" {
		txSubject = readSubject + ".cmd"
	}
	return readSubject, txSubject, nil
}

func (b *Backend) dialNATS(ctx context.Context, u *url.URL, timeout time.Duration) (activeConn, error) {
	readSubject, txSubject, err := subjectsFromURL(u)
	if err != nil {
		return nil, err
	}

	serverURL := fmt.Sprintf("nats://%s", u.Host)
	nc, err := b.natsConnect(serverURL,
		nats.Timeout(timeout),
		nats.RetryOnFailedConnect(false),
	)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		nc.Close()
		return nil, err
	}

	messages := make(chan *nats.Msg, 256)
	sub, err := nc.ChanSubscribe(readSubject, messages)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &natsConn{
		nc:          nc,
		sub:         sub,
		readSubject: readSubject,
		txSubject:   txSubject,
		messages:    messages,
	}, nil
}

func (n *natsConn) close() error {
	if n.sub != nil {
		_ = n.sub.Unsubscribe()
	}
	n.nc.Close()
	return nil
}

func (n *natsConn) bidirectional() bool {
	return true
}

func (n *natsConn) write(data []byte) error {
	if err := n.nc.Publish(n.txSubject, data); err != nil {
		return errors.WrapTransient(err, "netstream", "Write", "nats publish")
	}
	return nil
}

func (n *natsConn) readLoop(b *Backend, shutdown, done chan struct{}) {
	defer close(done)

	closed := make(chan struct{})
	n.nc.SetClosedHandler(func(*nats.Conn) { close(closed) })

	for {
		select {
		case msg, ok := <-n.messages:
			if !ok {
				b.streamFailed(shutdown,
					errors.WrapTransient(errors.ErrConnectionLost, "netstream", "readLoop", "nats subscription"))
				return
			}
			b.emit(strings.TrimRight(string(msg.Data), "\r\n"))
		case <-closed:
			b.streamFailed(shutdown,
				errors.WrapTransient(errors.ErrConnectionLost, "netstream", "readLoop", "nats connection"))
			return
		case <-shutdown:
			return
		}
	}
}
