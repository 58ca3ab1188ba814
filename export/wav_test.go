package export

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/store"
)

func TestWriteWAVHeaderAndInterleaving(t *testing.T) {
	sn := buildSnapshot(t) // 3 frames, series volts then amps

	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, sn, 1000))

	raw := buf.Bytes()
	require.Len(t, raw, 44+3*2*4)

	assert.Equal(t, "RIFF", string(raw[0:4]))
	assert.Equal(t, "WAVE", string(raw[8:12]))
	assert.Equal(t, "fmt ", string(raw[12:16]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(raw[20:22]), "IEEE float format")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(raw[22:24]), "channel count equals series count")
	assert.Equal(t, uint32(1000), binary.LittleEndian.Uint32(raw[24:28]))
	assert.Equal(t, uint32(1000*8), binary.LittleEndian.Uint32(raw[28:32]), "byte rate")
	assert.Equal(t, uint16(8), binary.LittleEndian.Uint16(raw[32:34]), "block align")
	assert.Equal(t, uint16(32), binary.LittleEndian.Uint16(raw[34:36]))
	assert.Equal(t, "data", string(raw[36:40]))
	assert.Equal(t, uint32(24), binary.LittleEndian.Uint32(raw[40:44]))
	assert.Equal(t, uint32(36+24), binary.LittleEndian.Uint32(raw[4:8]))

	readF32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(raw[off : off+4]))
	}

	// Frame 0: volts then amps, matching series insertion order.
	assert.InDelta(t, 3.3, readF32(44), 1e-6)
	assert.InDelta(t, 0.5, readF32(48), 1e-6)
	// Frame 1: amps had no sample; NaN written as zero.
	assert.InDelta(t, 3.4, readF32(52), 1e-6)
	assert.Equal(t, float32(0), readF32(56))
	// Frame 2.
	assert.InDelta(t, 3.5, readF32(60), 1e-6)
	assert.InDelta(t, 0.7, readF32(64), 1e-6)
}

func TestWriteWAVRejectsEmptySeriesSet(t *testing.T) {
	st, err := store.New(4)
	require.NoError(t, err)
	sn := st.Snapshot(store.All())

	var buf bytes.Buffer
	werr := WriteWAV(&buf, sn, 44100)
	require.Error(t, werr)
	assert.ErrorIs(t, werr, cerrors.ErrNoSeries)
}

func TestWriteWAVRejectsBadSampleRate(t *testing.T) {
	sn := buildSnapshot(t)
	var buf bytes.Buffer
	err := WriteWAV(&buf, sn, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrInvalidConfig)
}

func TestWriteWAVZeroFrames(t *testing.T) {
	st, err := store.New(4)
	require.NoError(t, err)
	st.Append(1, []store.Value{{Series: "a", V: 1}})
	sn := st.Snapshot(store.TimeRange(100, 200)) // empty window, series set kept

	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, sn, 8000))
	assert.Len(t, buf.Bytes(), 44)
}
