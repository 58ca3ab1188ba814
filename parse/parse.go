// Package parse turns decoded text lines into store appends. It is the glue
// between the connection manager's line output and the ring store's sample
// input.
//
// A line is a sequence of tokens separated by commas and/or whitespace.
// Each token is either a bare numeric value, assigned a positional channel
// name ("ch0", "ch1", ...), or an explicit "name:value" pair. Non-numeric
// tokens are skipped. Series order is first-seen order, which the store
// preserves as the column/channel contract.
package parse

import (
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/c360/plotstream/pkg/timestamp"
	"github.com/c360/plotstream/store"
	"github.com/c360/plotstream/transport"
)

// Parse splits one line into per-series values. The returned slice preserves
// token order. Lines with no numeric content return an empty slice.
func Parse(line string) []store.Value {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})

	values := make([]store.Value, 0, len(fields))
	position := 0
	for _, field := range fields {
		name := ""
		raw := field

		if idx := strings.IndexByte(field, ':'); idx >= 0 {
			name = strings.TrimSpace(field[:idx])
			raw = field[idx+1:]
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}

		if name == "" {
			name = "ch" + strconv.Itoa(position)
		}
		values = append(values, store.Value{Series: name, V: v})
		position++
	}
	return values
}

// Sink adapts a store into a transport.Handler: each line is parsed and
// appended with its arrival time as the timestamp. Lines without numeric
// content are counted and dropped. Stream errors are logged; the connection
// manager owns recovery.
type Sink struct {
	store  *store.Store
	logger *slog.Logger

	linesParsed  atomic.Int64
	linesSkipped atomic.Int64
}

// NewSink creates a sink appending into st.
func NewSink(st *store.Store, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default().With("component", "parse")
	}
	return &Sink{store: st, logger: logger}
}

// Handler returns the transport handler feeding the store.
func (s *Sink) Handler() transport.Handler {
	return transport.Handler{
		OnLine:  s.consume,
		OnError: s.streamError,
	}
}

func (s *Sink) consume(line transport.Line) {
	values := Parse(line.Text)
	if len(values) == 0 {
		s.linesSkipped.Add(1)
		return
	}
	s.store.Append(timestamp.FromTime(line.Received), values)
	s.linesParsed.Add(1)
}

func (s *Sink) streamError(err error) {
	s.logger.Warn("stream error", "error", err)
}

// Stats reports parsed and skipped line counts.
func (s *Sink) Stats() (parsed, skipped int64) {
	return s.linesParsed.Load(), s.linesSkipped.Load()
}
