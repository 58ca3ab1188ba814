// Package lineio turns an incoming byte stream into discrete text lines.
// Chunks arrive with arbitrary boundaries; the splitter emits one line per
// line feed, strips a trailing carriage return, and holds any partial
// trailing line until more data arrives or the stream ends.
package lineio

import "bytes"

// Splitter accumulates byte chunks and yields complete lines.
// The zero value is ready to use.
type Splitter struct {
	pending []byte
}

// Push appends a chunk and returns every line completed by it, in order.
// Lines never contain the terminating line feed; a carriage return
// immediately before the line feed is stripped. Empty lines are returned as
// empty strings.
func (s *Splitter) Push(chunk []byte) []string {
	s.pending = append(s.pending, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(s.pending, '\n')
		if idx < 0 {
			break
		}
		line := s.pending[:idx]
		s.pending = s.pending[idx+1:]

		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		lines = append(lines, string(line))
	}
	return lines
}

// Pending returns the number of buffered bytes not yet terminated by a
// line feed.
func (s *Splitter) Pending() int {
	return len(s.pending)
}

// Flush returns the held partial line, if any, and resets the splitter.
// Called at stream end so trailing unterminated data is not lost.
func (s *Splitter) Flush() (string, bool) {
	if len(s.pending) == 0 {
		return "", false
	}
	line := s.pending
	s.pending = nil

	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return string(line), true
}
