package objectstream

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeReaderFromValues builds a Reader over a hand-encoded stream so demux
// tests don't need a full Writer pipeline.
func fakeReaderFromValues(t *testing.T, items ...Value) *Reader {
	t.Helper()
	var buf bytes.Buffer
	for _, v := range items {
		if ts, ok := v.(ThreadSwitch); ok {
			buf.WriteByte(makeFixedControl(ThreadSwitchOp))
			require.NoError(t, writeExpectedInt(&buf, ts.ThreadID))
			require.NoError(t, writeExpectedInt(&buf, ts.Handle))
			continue
		}
		require.NoError(t, encodeValue(&buf, v, encodeCtx{}))
	}
	return NewReader(&buf)
}

func TestDemuxRoutesPerThread(t *testing.T) {
	r := fakeReaderFromValues(t,
		ThreadSwitch{ThreadID: 1},
		int64(10),
		ThreadSwitch{ThreadID: 2},
		int64(20),
		ThreadSwitch{ThreadID: 1},
		int64(11),
	)
	d := NewDemux(r, nil)

	v, err := d.NextFor(1, time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(10), v)

	v, err = d.NextFor(2, time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(20), v)

	v, err = d.NextFor(1, time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(11), v)
}

func TestDemuxTimeout(t *testing.T) {
	// A pipe that never delivers keeps the stream open, so the wait below
	// can only end by timing out.
	pr, pw := io.Pipe()
	defer pw.Close()
	r := NewReader(pr)
	timedOut := make(chan uint64, 1)
	d := NewDemux(r, func(key uint64, pending int) {
		timedOut <- key
	})

	_, err := d.NextFor(99, 20*time.Millisecond)
	require.Error(t, err)
	select {
	case key := <-timedOut:
		require.Equal(t, uint64(99), key)
	case <-time.After(time.Second):
		t.Fatal("onTimeout was not called")
	}
}
