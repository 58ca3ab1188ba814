package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/plotstream/store"
	"github.com/c360/plotstream/transport"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []store.Value
	}{
		{
			"bare csv",
			"1.5,2,-3.25",
			[]store.Value{{Series: "ch0", V: 1.5}, {Series: "ch1", V: 2}, {Series: "ch2", V: -3.25}},
		},
		{
			"named pairs",
			"volts:3.3 amps:0.5",
			[]store.Value{{Series: "volts", V: 3.3}, {Series: "amps", V: 0.5}},
		},
		{
			"mixed named and positional",
			"temp:21.5,42",
			[]store.Value{{Series: "temp", V: 21.5}, {Series: "ch1", V: 42}},
		},
		{
			"non-numeric tokens skipped",
			"ok,1.0,ready,2.0",
			[]store.Value{{Series: "ch0", V: 1}, {Series: "ch1", V: 2}},
		},
		{"empty line", "", []store.Value{}},
		{"pure text", "hello world", []store.Value{}},
		{"whitespace separators", "  1\t2  ", []store.Value{{Series: "ch0", V: 1}, {Series: "ch1", V: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.line))
		})
	}
}

func TestSinkAppendsIntoStore(t *testing.T) {
	st, err := store.New(16)
	require.NoError(t, err)

	sink := NewSink(st, nil)
	h := sink.Handler()

	arrival := time.Now()
	h.OnLine(transport.Line{Text: "a:1 b:2", Seq: 1, Received: arrival})
	h.OnLine(transport.Line{Text: "a:3", Seq: 2, Received: arrival.Add(time.Millisecond)})
	h.OnLine(transport.Line{Text: "not numbers", Seq: 3, Received: arrival})

	assert.Equal(t, uint64(2), st.WriteCursor())

	infos := st.Series()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, "b", infos[1].Name)

	parsed, skipped := sink.Stats()
	assert.Equal(t, int64(2), parsed)
	assert.Equal(t, int64(1), skipped)

	sn := st.Snapshot(store.All())
	require.Equal(t, 2, sn.Len())
	assert.Equal(t, arrival.UnixMilli(), sn.Times[0])
}

func TestSinkStreamErrorDoesNotPanic(t *testing.T) {
	st, err := store.New(4)
	require.NoError(t, err)

	sink := NewSink(st, nil)
	sink.Handler().OnError(assert.AnError)
}
