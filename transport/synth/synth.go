// Package synth provides the synthetic generator backend: waveform lines
// produced on a local schedule with no external transport. Useful for demos
// and for exercising the pipeline without hardware.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/transport"
)

// Shape names accepted by the generator.
const (
	ShapeSine     = "sine"
	ShapeSquare   = "square"
	ShapeSawtooth = "sawtooth"
	ShapeTriangle = "triangle"
	ShapeNoise    = "noise"
)

// Deps holds runtime dependencies for the synthetic backend.
type Deps struct {
	Logger *slog.Logger
}

// Backend implements transport.Backend with locally generated waveforms.
// Write is not meaningful for a generator and always fails.
type Backend struct {
	transport.Base

	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ transport.Backend = (*Backend)(nil)

// NewBackend creates a synthetic generator backend.
func NewBackend(deps Deps) *Backend {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "synth")
	}
	return &Backend{logger: logger}
}

// Kind returns transport.KindSynth.
func (b *Backend) Kind() transport.Kind {
	return transport.KindSynth
}

// Supported is always true: the generator needs no environment capability.
func (b *Backend) Supported() bool {
	return true
}

func normalize(p transport.SynthParams) (transport.SynthParams, error) {
	if p.Channels <= 0 {
		p.Channels = 1
	}
	if p.Rate <= 0 {
		p.Rate = 10
	}
	if p.Frequency <= 0 {
		p.Frequency = 1
	}
	if p.Amplitude <= 0 {
		p.Amplitude = 1
	}
	if p.Shape == "" {
		p.Shape = ShapeSine
	}
	switch p.Shape {
	case ShapeSine, ShapeSquare, ShapeSawtooth, ShapeTriangle, ShapeNoise:
	default:
		return p, errors.WrapInvalid(
			fmt.Errorf("unknown shape %q", p.Shape),
			"synth", "Connect", "shape validation")
	}
	return p, nil
}

// Connect starts the generator loop. Any running generator is stopped first.
func (b *Backend) Connect(ctx context.Context, p transport.Params) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sp, err := normalize(p.Synth)
	if err != nil {
		return err
	}

	_ = b.Disconnect()
	b.SetState(transport.StateConnecting)

	genCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	b.mu.Lock()
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	b.SetState(transport.StateConnected)
	b.logger.Info("synth generator started",
		"channels", sp.Channels, "rate", sp.Rate, "shape", sp.Shape)

	go b.generate(genCtx, sp, done)
	return nil
}

func (b *Backend) generate(ctx context.Context, sp transport.SynthParams, done chan struct{}) {
	defer close(done)

	limiter := rate.NewLimiter(rate.Limit(sp.Rate), 1)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	start := time.Now()

	var sb strings.Builder
	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		t := time.Since(start).Seconds()
		sb.Reset()
		for ch := 0; ch < sp.Channels; ch++ {
			if ch > 0 {
				sb.WriteByte(',')
			}
			v := sample(sp, rng, t, ch)
			sb.WriteString(strconv.FormatFloat(v, 'f', 4, 64))
		}
		b.EmitLine(sb.String())
	}
}

// sample evaluates one channel at elapsed time t. Channels are phase-shifted
// evenly across one cycle so multi-channel output is visually distinct.
func sample(sp transport.SynthParams, rng *rand.Rand, t float64, ch int) float64 {
	if sp.Shape == ShapeNoise {
		return sp.Amplitude * (rng.Float64()*2 - 1)
	}

	phase := sp.Frequency*t + float64(ch)/float64(sp.Channels)
	frac := phase - math.Floor(phase) // [0, 1)

	switch sp.Shape {
	case ShapeSquare:
		if frac < 0.5 {
			return sp.Amplitude
		}
		return -sp.Amplitude
	case ShapeSawtooth:
		return sp.Amplitude * (2*frac - 1)
	case ShapeTriangle:
		return sp.Amplitude * (1 - 4*math.Abs(frac-0.5))
	default: // sine
		return sp.Amplitude * math.Sin(2*math.Pi*phase)
	}
}

// Disconnect stops the generator. Never fails.
func (b *Backend) Disconnect() error {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	b.SetState(transport.StateDisconnected)
	return nil
}

// Write always fails: the generator is driven purely by local configuration.
func (b *Backend) Write([]byte) error {
	return errors.WrapInvalid(errors.ErrWriteUnsupported, "synth", "Write", "generator")
}
