package manager

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/c360/plotstream/errors"
	"github.com/c360/plotstream/testutil"
	"github.com/c360/plotstream/transport"
)

func newTestManager(t *testing.T, sink transport.Handler, backends ...transport.Backend) *Manager {
	t.Helper()
	m, err := NewManager(Deps{
		Backends: backends,
		Sink:     sink,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(Deps{})
	require.Error(t, err)

	a := testutil.NewFakeBackend(transport.KindSerial)
	b := testutil.NewFakeBackend(transport.KindSerial)
	_, err = NewManager(Deps{Backends: []transport.Backend{a, b}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate backend kind")
}

func TestConnectUnknownKind(t *testing.T) {
	m := newTestManager(t, transport.Handler{}, testutil.NewFakeBackend(transport.KindSerial))

	err := m.Connect(context.Background(), transport.KindNet, transport.Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transport kind")
	assert.Equal(t, transport.KindNone, m.ActiveKind())
}

func TestConnectDisconnectLifecycle(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	m := newTestManager(t, transport.Handler{}, serial)

	require.NoError(t, m.Connect(context.Background(), transport.KindSerial, transport.Params{}))
	assert.Equal(t, transport.KindSerial, m.ActiveKind())

	st := m.Status()
	assert.True(t, st.Connected)
	assert.False(t, st.Connecting)
	assert.Equal(t, transport.KindSerial, st.Active)
	assert.Empty(t, st.LastError)

	m.Disconnect()
	assert.Equal(t, transport.KindNone, m.ActiveKind())
	assert.False(t, m.Status().Connected)
}

func TestSwitchingDisconnectsPreviousBackend(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	net := testutil.NewFakeBackend(transport.KindNet)
	m := newTestManager(t, transport.Handler{}, serial, net)

	require.NoError(t, m.Connect(context.Background(), transport.KindSerial, transport.Params{}))
	require.NoError(t, m.Connect(context.Background(), transport.KindNet, transport.Params{}))

	assert.Equal(t, transport.KindNet, m.ActiveKind())
	assert.Equal(t, transport.StateDisconnected, serial.State())
	assert.Equal(t, transport.StateConnected, net.State())
	assert.GreaterOrEqual(t, serial.DisconnectCalls(), 1)
}

func TestFailedConnectRevertsToIdle(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	serial.ConnectErr = fmt.Errorf("device busy")
	m := newTestManager(t, transport.Handler{}, serial)

	err := m.Connect(context.Background(), transport.KindSerial, transport.Params{})
	require.Error(t, err)

	assert.Equal(t, transport.KindNone, m.ActiveKind())
	st := m.Status()
	assert.Contains(t, st.LastError, "device busy")
	assert.False(t, st.Connected)

	// Write immediately after a failed connect fails with "not connected".
	werr := m.Write([]byte("x"))
	require.Error(t, werr)
	assert.ErrorIs(t, werr, cerrors.ErrNotConnected)
}

func TestErrorClearedOnNewAttempt(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	serial.ConnectErr = fmt.Errorf("device busy")
	m := newTestManager(t, transport.Handler{}, serial)

	require.Error(t, m.Connect(context.Background(), transport.KindSerial, transport.Params{}))
	assert.NotEmpty(t, m.Status().LastError)

	serial.ConnectErr = nil
	require.NoError(t, m.Connect(context.Background(), transport.KindSerial, transport.Params{}))
	assert.Empty(t, m.Status().LastError)
}

func TestNewConnectSupersedesInFlightOne(t *testing.T) {
	slow := testutil.NewFakeBackend(transport.KindNet)
	slow.ConnectDelay = 200 * time.Millisecond
	fast := testutil.NewFakeBackend(transport.KindSynth)
	m := newTestManager(t, transport.Handler{}, slow, fast)

	results := make(chan error, 1)
	go func() {
		results <- m.Connect(context.Background(), transport.KindNet, transport.Params{})
	}()

	time.Sleep(50 * time.Millisecond) // let the slow dial start
	require.NoError(t, m.Connect(context.Background(), transport.KindSynth, transport.Params{}))

	err := <-results
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrAttemptSuperseded)

	// The superseded backend must not end up connected.
	assert.Equal(t, transport.KindSynth, m.ActiveKind())
	assert.Eventually(t, func() bool {
		return slow.State() == transport.StateDisconnected
	}, time.Second, 10*time.Millisecond)
}

func TestSupersededTeardownCannotDisconnectWinner(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	net := testutil.NewFakeBackend(transport.KindNet)
	m := newTestManager(t, transport.Handler{}, serial, net)

	require.NoError(t, m.Connect(context.Background(), transport.KindSerial, transport.Params{}))

	// First switch attempt stalls while tearing the serial backend down.
	gate := make(chan struct{})
	serial.DisconnectGate = gate
	loser := make(chan error, 1)
	go func() {
		loser <- m.Connect(context.Background(), transport.KindNet, transport.Params{})
	}()
	require.Eventually(t, func() bool {
		return serial.DisconnectCalls() == 1
	}, time.Second, 5*time.Millisecond)

	// Second attempt reclaims serial while the first is still parked in
	// teardown, then the stalled teardown is released.
	winner := make(chan error, 1)
	go func() {
		winner <- m.Connect(context.Background(), transport.KindSerial, transport.Params{})
	}()
	time.Sleep(20 * time.Millisecond)
	close(gate)

	require.NoError(t, <-winner)
	err := <-loser
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrAttemptSuperseded)

	// The winner's connection survives the superseded attempt's teardown.
	assert.Equal(t, transport.KindSerial, m.ActiveKind())
	assert.Equal(t, transport.StateConnected, serial.State())
	st := m.Status()
	assert.True(t, st.Connected)
	assert.Empty(t, st.LastError)
}

func TestLinesForwardedToSink(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	var collector testutil.LineCollector
	m := newTestManager(t, collector.Handler(), serial)

	require.NoError(t, m.Connect(context.Background(), transport.KindSerial, transport.Params{}))

	serial.EmitLine("one")
	serial.EmitLine("two")

	require.True(t, collector.WaitForLines(2, time.Second))
	assert.Equal(t, []string{"one", "two"}, collector.Texts())
}

func TestInactiveBackendLinesNotForwarded(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	synth := testutil.NewFakeBackend(transport.KindSynth)
	var collector testutil.LineCollector
	m := newTestManager(t, collector.Handler(), serial, synth)

	require.NoError(t, m.Connect(context.Background(), transport.KindSynth, transport.Params{}))

	serial.EmitLine("stale")
	synth.EmitLine("live")

	require.True(t, collector.WaitForLines(1, time.Second))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"live"}, collector.Texts())
}

func TestStreamErrorRevertsToIdleAndReachesSink(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	var collector testutil.LineCollector
	m := newTestManager(t, collector.Handler(), serial)

	require.NoError(t, m.Connect(context.Background(), transport.KindSerial, transport.Params{}))

	serial.SetState(transport.StateDisconnected)
	serial.EmitError(fmt.Errorf("peer went away"))

	assert.Eventually(t, func() bool {
		return m.ActiveKind() == transport.KindNone
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, m.Status().LastError, "peer went away")
	require.Len(t, collector.Errors(), 1)
}

func TestWriteDelegatesToConnectedBackend(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	m := newTestManager(t, transport.Handler{}, serial)

	require.NoError(t, m.Connect(context.Background(), transport.KindSerial, transport.Params{}))
	require.NoError(t, m.Write([]byte("cmd")))

	written := serial.Written()
	require.Len(t, written, 1)
	assert.Equal(t, []byte("cmd"), written[0])
}

func TestStatusAggregatesSupport(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	net := testutil.NewFakeBackend(transport.KindNet)
	net.SupportedVal = false
	m := newTestManager(t, transport.Handler{}, serial, net)

	assert.False(t, m.Status().Supported)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	serial := testutil.NewFakeBackend(transport.KindSerial)
	m := newTestManager(t, transport.Handler{}, serial)

	m.Disconnect()
	m.Disconnect()
	assert.Equal(t, transport.KindNone, m.ActiveKind())
}
