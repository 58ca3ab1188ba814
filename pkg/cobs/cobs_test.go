package cobs

import (
	"bytes"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/c360/plotstream/errors"
)

func TestDecodeKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"empty", []byte{}, []byte{}},
		{"single zero", []byte{0x01, 0x01}, []byte{0x00}},
		{"two zeros", []byte{0x01, 0x01, 0x01}, []byte{0x00, 0x00}},
		{"no zeros", []byte{0x04, 'a', 'b', 'c'}, []byte{'a', 'b', 'c'}},
		{"zero in middle", []byte{0x03, 0x11, 0x22, 0x02, 0x33}, []byte{0x11, 0x22, 0x00, 0x33}},
		{"leading zero", []byte{0x01, 0x02, 0x11}, []byte{0x00, 0x11}},
		{"lone code one", []byte{0x01}, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeZeroCodeByteFails(t *testing.T) {
	_, err := Decode([]byte{0x00})
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrInvalidFrame)

	_, err = Decode([]byte{0x02, 0x11, 0x00, 0x01})
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrInvalidFrame)
}

func TestDecodeOverrunningCodeFails(t *testing.T) {
	// Code 5 claims four data bytes but only two exist plus slack of one.
	_, err := Decode([]byte{0x05, 0x11, 0x22})
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrInvalidFrame)
}

func TestDecodeShortFinalBlockTolerated(t *testing.T) {
	// Final code may exceed remaining input by exactly one byte.
	got, err := Decode([]byte{0x04, 0x11, 0x22})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22}, got)
}

func TestDecodeCodeOneFollowedByMoreInputRestoresZero(t *testing.T) {
	// A minimal block (code 1, no data) mid-stream restores exactly one zero.
	got, err := Decode([]byte{0x01, 0x02, 0x42})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x42}, got)
}

func TestDecodeMaxLengthBlockSkipsZeroInsertion(t *testing.T) {
	in := make([]byte, 0, 256)
	in = append(in, 0xFF)
	for i := 0; i < 254; i++ {
		in = append(in, byte(i+1))
	}
	in = append(in, 0x02, 0x77)

	got, err := Decode(in)
	require.NoError(t, err)
	require.Len(t, got, 255)
	// No zero between the 254-byte block and the following byte.
	assert.Equal(t, byte(254), got[253])
	assert.Equal(t, byte(0x77), got[254])
}

func TestRoundTripBoundaryLengths(t *testing.T) {
	for _, n := range []int{0, 1, 2, 253, 254, 255, 256, 509, 510, 1024} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			src := make([]byte, n)
			for i := range src {
				src[i] = byte(i % 251) // includes zeros periodically
			}
			encoded := Encode(src)
			assert.NotContains(t, encoded, byte(0))

			decoded, err := Decode(encoded)
			require.NoError(t, err, "length %d", n)
			assert.True(t, bytes.Equal(src, decoded), "length %d", n)
		})
	}
}

func TestRoundTripAllZeros(t *testing.T) {
	for _, n := range []int{1, 10, 255, 300} {
		src := make([]byte, n)
		decoded, err := Decode(Encode(src))
		require.NoError(t, err)
		assert.Equal(t, src, decoded, "length %d", n)
	}
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		src := make([]byte, rng.Intn(2000))
		rng.Read(src)

		decoded, err := Decode(Encode(src))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(src, decoded))
	}
}

func TestStreamingDecoderSplitsFrames(t *testing.T) {
	d := NewDecoder(0)

	a := Encode([]byte("hello"))
	b := Encode([]byte{0x01, 0x00, 0x02})

	raw := append(append(append([]byte{}, a...), 0), b...)
	raw = append(raw, 0)

	frames, err := d.Push(raw)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, []byte("hello"), frames[0])
	assert.Equal(t, []byte{0x01, 0x00, 0x02}, frames[1])
	assert.Equal(t, 0, d.Pending())
}

func TestStreamingDecoderHoldsPartialFrame(t *testing.T) {
	d := NewDecoder(0)

	enc := Encode([]byte("split across pushes"))
	mid := len(enc) / 2

	frames, err := d.Push(enc[:mid])
	require.NoError(t, err)
	assert.Empty(t, frames)
	assert.Equal(t, mid, d.Pending())

	frames, err = d.Push(append(enc[mid:], 0))
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("split across pushes"), frames[0])
}

func TestStreamingDecoderSkipsEmptyBlocks(t *testing.T) {
	d := NewDecoder(0)
	frames, err := d.Push([]byte{0, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestStreamingDecoderReportsBadBlockAndContinues(t *testing.T) {
	d := NewDecoder(0)

	good := Encode([]byte("ok"))
	raw := []byte{0x05, 0x11, 0} // overrunning block
	raw = append(raw, good...)
	raw = append(raw, 0)

	frames, err := d.Push(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrInvalidFrame)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("ok"), frames[0])
}

func TestStreamingDecoderBoundsAccumulation(t *testing.T) {
	d := NewDecoder(16)
	junk := bytes.Repeat([]byte{0x7F}, 32) // no delimiter

	_, err := d.Push(junk)
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrFrameTooLong)
	assert.Equal(t, 0, d.Pending())
}
