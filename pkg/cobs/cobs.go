// Package cobs implements Consistent Overhead Byte Stuffing, a reversible
// encoding that removes all zero bytes from a block so zero can serve as an
// unambiguous frame delimiter on serial and stream transports.
package cobs

import (
	"fmt"

	"github.com/c360/plotstream/errors"
)

// Decode recovers the original byte sequence from one COBS-encoded block.
// The input must not include the leading/trailing zero delimiter. Decoding is
// all-or-nothing: on a framing error no partial output is returned.
func Decode(src []byte) ([]byte, error) {
	out := make([]byte, 0, len(src))

	for i := 0; i < len(src); {
		n := int(src[i])
		if n == 0 {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: zero code byte at offset %d", errors.ErrInvalidFrame, i),
				"cobs", "Decode", "code byte")
		}

		end := i + n
		if end > len(src)+1 {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: code %#02x at offset %d overruns input of %d bytes",
					errors.ErrInvalidFrame, n, i, len(src)),
				"cobs", "Decode", "block length")
		}

		// Copy the block body, tolerating a short final block.
		stop := end
		if stop > len(src) {
			stop = len(src)
		}
		out = append(out, src[i+1:stop]...)

		// A code below 0xFF marks a stuffed zero unless this is the last block.
		if n < 0xFF && end < len(src) {
			out = append(out, 0)
		}

		i = end
	}

	return out, nil
}

// Encode produces the COBS encoding of src without delimiters. The output
// contains no zero bytes and Decode(Encode(src)) == src for every input.
func Encode(src []byte) []byte {
	out := make([]byte, 1, len(src)+1+len(src)/254)
	codeIdx := 0
	code := byte(1)

	finishBlock := func() {
		out[codeIdx] = code
		codeIdx = len(out)
		out = append(out, 0)
		code = 1
	}

	for _, b := range src {
		if b == 0 {
			finishBlock()
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			finishBlock()
		}
	}
	out[codeIdx] = code

	return out
}
