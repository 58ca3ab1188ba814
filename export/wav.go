package export

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/store"
)

const (
	wavFormatIEEEFloat = 3
	wavBitsPerSample   = 32
)

// WriteWAV renders a snapshot as an uncompressed RIFF/WAVE container with
// IEEE float32 samples: one channel per series in insertion order, one frame
// per sample row, channels interleaved within each frame. Non-finite source
// values are written as zero.
func WriteWAV(w io.Writer, sn *store.Snapshot, sampleRate int) error {
	channels := len(sn.Series)
	if channels == 0 {
		return errors.WrapInvalid(errors.ErrNoSeries, "export", "WriteWAV", "channel count")
	}
	if sampleRate <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "export", "WriteWAV", "sample rate")
	}

	frames := sn.Len()
	bytesPerFrame := channels * wavBitsPerSample / 8
	dataSize := uint32(frames * bytesPerFrame)

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], wavFormatIEEEFloat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*bytesPerFrame))
	binary.LittleEndian.PutUint16(header[32:34], uint16(bytesPerFrame))
	binary.LittleEndian.PutUint16(header[34:36], wavBitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header[:]); err != nil {
		return errors.Wrap(err, "export", "WriteWAV", "header write")
	}

	frame := make([]byte, bytesPerFrame)
	for i := 0; i < frames; i++ {
		for ch, sr := range sn.Series {
			v := sr.Values[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			bits := math.Float32bits(float32(v))
			binary.LittleEndian.PutUint32(frame[ch*4:], bits)
		}
		if _, err := w.Write(frame); err != nil {
			return errors.Wrap(err, "export", "WriteWAV", "frame write")
		}
	}

	return nil
}
