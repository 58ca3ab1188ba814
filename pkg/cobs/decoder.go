package cobs

import (
	"bytes"
	"fmt"

	"github.com/c360/plotstream/errors"
)

// DefaultMaxFrame bounds how many raw bytes the streaming decoder will
// accumulate before declaring the stream unframed. Protects against a peer
// that never sends a delimiter.
const DefaultMaxFrame = 64 * 1024

// Decoder splits a raw byte stream on zero delimiters and decodes each
// complete block. Partial trailing data is held until more bytes arrive.
// A malformed block is dropped with an error; the decoder stays usable for
// subsequent blocks.
type Decoder struct {
	buf      []byte
	maxFrame int
}

// NewDecoder returns a streaming decoder. maxFrame <= 0 selects
// DefaultMaxFrame.
func NewDecoder(maxFrame int) *Decoder {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrame
	}
	return &Decoder{maxFrame: maxFrame}
}

// Push appends a chunk of raw bytes and returns every frame completed by it,
// in arrival order. Zero-length blocks (consecutive delimiters) are skipped.
// The returned error reports the first malformed block encountered; decoding
// of later blocks in the same chunk still proceeds.
func (d *Decoder) Push(chunk []byte) ([][]byte, error) {
	d.buf = append(d.buf, chunk...)

	var frames [][]byte
	var firstErr error

	for {
		idx := bytes.IndexByte(d.buf, 0)
		if idx < 0 {
			break
		}
		block := d.buf[:idx]
		d.buf = d.buf[idx+1:]

		if len(block) == 0 {
			continue
		}

		frame, err := Decode(block)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		frames = append(frames, frame)
	}

	if len(d.buf) > d.maxFrame {
		d.buf = nil
		overrun := errors.WrapInvalid(
			fmt.Errorf("%w: %d bytes without delimiter", errors.ErrFrameTooLong, d.maxFrame),
			"cobs", "Push", "frame accumulation")
		if firstErr == nil {
			firstErr = overrun
		}
	}

	return frames, firstErr
}

// Pending returns the number of buffered bytes awaiting a delimiter.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Reset discards any partially accumulated frame.
func (d *Decoder) Reset() {
	d.buf = nil
}
