// Package serial provides the point-to-point serial link backend. In the
// default framing mode lines are produced by splitting the raw byte stream
// on line feeds; in COBS mode the stream is split on zero delimiters and
// each block is unstuffed before being emitted as a line. Only the baud
// rate is guaranteed to be honored by the underlying port, the remaining
// port options are applied best-effort.
package serial

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	goserial "go.bug.st/serial"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/pkg/cobs"
	"github.com/c360/plotstream/pkg/lineio"
	"github.com/c360/plotstream/transport"
)

// framer turns raw port bytes into complete records. flush drains whatever
// a line framer holds at stream end; the COBS framer holds only incomplete
// frames, which are never emitted.
type framer interface {
	push(chunk []byte) ([]string, error)
	flush() (string, bool)
}

type lineFramer struct {
	splitter lineio.Splitter
}

func (f *lineFramer) push(chunk []byte) ([]string, error) {
	return f.splitter.Push(chunk), nil
}

func (f *lineFramer) flush() (string, bool) {
	return f.splitter.Flush()
}

type cobsFramer struct {
	decoder *cobs.Decoder
}

func (f *cobsFramer) push(chunk []byte) ([]string, error) {
	frames, err := f.decoder.Push(chunk)
	records := make([]string, len(frames))
	for i, frame := range frames {
		records[i] = string(frame)
	}
	return records, err
}

func (f *cobsFramer) flush() (string, bool) {
	return "", false
}

func newFramer(framing string) (framer, error) {
	switch framing {
	case "", "lines":
		return &lineFramer{}, nil
	case "cobs":
		return &cobsFramer{decoder: cobs.NewDecoder(0)}, nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown framing %q", framing),
			"serial", "Connect", "framing validation")
	}
}

// PortOpener opens a serial device. Replaced in tests with an in-memory
// implementation.
type PortOpener func(device string, mode *goserial.Mode) (io.ReadWriteCloser, error)

func defaultOpener(device string, mode *goserial.Mode) (io.ReadWriteCloser, error) {
	return goserial.Open(device, mode)
}

// Deps holds runtime dependencies for the serial backend.
type Deps struct {
	Logger *slog.Logger
	Opener PortOpener // nil selects the real serial port
}

// Backend implements transport.Backend over a serial device.
type Backend struct {
	transport.Base

	logger *slog.Logger
	opener PortOpener

	mu       sync.Mutex
	port     io.ReadWriteCloser
	shutdown chan struct{}
	done     chan struct{}

	bytesRead     atomic.Int64
	linesEmitted  atomic.Int64
	framesDropped atomic.Int64
}

var _ transport.Backend = (*Backend)(nil)

// NewBackend creates a serial backend.
func NewBackend(deps Deps) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "serial")
	}
	opener := deps.Opener
	if opener == nil {
		opener = defaultOpener
	}
	return &Backend{
		logger: logger,
		opener: opener,
	}
}

// Kind returns transport.KindSerial.
func (b *Backend) Kind() transport.Kind {
	return transport.KindSerial
}

// Supported reports whether serial ports can be enumerated here.
func (b *Backend) Supported() bool {
	return true
}

// Connect opens the device and starts the read loop. Any existing connection
// is torn down first.
func (b *Backend) Connect(ctx context.Context, p transport.Params) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Device == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "serial", "Connect", "device validation")
	}
	fr, err := newFramer(p.Framing)
	if err != nil {
		return err
	}

	_ = b.Disconnect()
	b.SetState(transport.StateConnecting)

	mode := buildMode(p)
	port, err := b.opener(p.Device, mode)
	if err != nil {
		b.SetState(transport.StateDisconnected)
		return errors.WrapTransient(err, "serial", "Connect", fmt.Sprintf("open %s", p.Device))
	}

	b.mu.Lock()
	b.port = port
	b.shutdown = make(chan struct{})
	b.done = make(chan struct{})
	shutdown, done := b.shutdown, b.done
	b.mu.Unlock()

	b.SetState(transport.StateConnected)
	b.logger.Info("serial connected", "device", p.Device, "baud", mode.BaudRate)

	go b.readLoop(port, fr, shutdown, done)
	return nil
}

// buildMode maps params onto the port mode. Baud is the contract; data
// bits, parity, and stop bits are best-effort.
func buildMode(p transport.Params) *goserial.Mode {
	mode := &goserial.Mode{
		BaudRate: p.Baud,
		DataBits: p.DataBits,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	}
	if mode.BaudRate <= 0 {
		mode.BaudRate = 115200
	}
	if mode.DataBits <= 0 {
		mode.DataBits = 8
	}
	switch strings.ToLower(p.Parity) {
	case "even":
		mode.Parity = goserial.EvenParity
	case "odd":
		mode.Parity = goserial.OddParity
	}
	if p.StopBits == 2 {
		mode.StopBits = goserial.TwoStopBits
	}
	return mode
}

func (b *Backend) readLoop(port io.ReadWriteCloser, fr framer, shutdown, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 4096)

	for {
		n, err := port.Read(buf)
		if n > 0 {
			b.bytesRead.Add(int64(n))
			records, ferr := fr.push(buf[:n])
			if ferr != nil {
				// Malformed frames are dropped; the stream stays usable.
				b.framesDropped.Add(1)
				b.logger.Debug("frame dropped", "error", ferr)
			}
			for _, line := range records {
				b.linesEmitted.Add(1)
				b.EmitLine(line)
			}
		}
		if err == nil {
			continue
		}

		select {
		case <-shutdown:
			// Teardown closed the port out from under the Read; stay quiet.
			return
		default:
		}

		if line, ok := fr.flush(); ok {
			b.linesEmitted.Add(1)
			b.EmitLine(line)
		}

		b.SetState(transport.StateDisconnected)
		if err == io.EOF {
			err = errors.ErrConnectionLost
		}
		b.EmitError(errors.WrapTransient(err, "serial", "readLoop", "port read"))
		return
	}
}

// Disconnect closes the port and stops the read loop, best-effort.
func (b *Backend) Disconnect() error {
	b.mu.Lock()
	port, shutdown, done := b.port, b.shutdown, b.done
	b.port, b.shutdown, b.done = nil, nil, nil
	b.mu.Unlock()

	if shutdown != nil {
		close(shutdown)
	}
	if port != nil {
		// Closing unblocks the pending Read in the loop.
		if err := port.Close(); err != nil {
			b.logger.Debug("serial close", "error", err)
		}
	}
	if done != nil {
		<-done
	}

	b.SetState(transport.StateDisconnected)
	return nil
}

// Write sends raw bytes to the peer.
func (b *Backend) Write(data []byte) error {
	if b.State() != transport.StateConnected {
		return errors.WrapInvalid(errors.ErrNotConnected, "serial", "Write", "state check")
	}

	b.mu.Lock()
	port := b.port
	b.mu.Unlock()
	if port == nil {
		return errors.WrapInvalid(errors.ErrNotConnected, "serial", "Write", "port check")
	}

	if _, err := port.Write(data); err != nil {
		return errors.WrapTransient(err, "serial", "Write", "port write")
	}
	return nil
}

// Stats reports read-loop activity counters.
func (b *Backend) Stats() (bytesRead, linesEmitted, framesDropped int64) {
	return b.bytesRead.Load(), b.linesEmitted.Load(), b.framesDropped.Load()
}
