package pump

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/srediag/plugin-pipe/pkg/pipe"
)

func newPipe(t *testing.T, capacity int) *pipe.Pipe {
	t.Helper()
	conf := pipe.DefaultConfig()
	conf.Name = t.Name()
	conf.Capacity = capacity
	p, err := pipe.New(conf)
	require.NoError(t, err)
	return p
}

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func TestRun(t *testing.T) {
	for _, mode := range []Mode{ModePoll, ModeAsync} {
		t.Run(string(mode), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			p := newPipe(t, 64)
			src := payload(50000)
			var dst bytes.Buffer

			pm := &Pump{Pipe: p, Mode: mode, Chunk: 100, Logger: zaptest.NewLogger(t)}
			require.NoError(t, pm.Run(ctx, bytes.NewReader(src), &dst))
			assert.Equal(t, src, dst.Bytes())

			st := p.Stats()
			assert.False(t, st.Allocated, "openers are closed afterwards")
			assert.Equal(t, uint64(len(src)), st.BytesRead)
		})
	}
}

func TestRunSlowSource(t *testing.T) {
	p := newPipe(t, 8)
	src := payload(300)
	var dst bytes.Buffer
	pm := &Pump{Pipe: p, Mode: ModeAsync}
	require.NoError(t, pm.Run(context.Background(), iotest.OneByteReader(bytes.NewReader(src)), &dst))
	assert.Equal(t, src, dst.Bytes())
}

func TestRunSourceError(t *testing.T) {
	boom := errors.New("boom")
	pm := &Pump{Pipe: newPipe(t, 16), Mode: ModePoll}
	err := pm.Run(context.Background(), iotest.ErrReader(boom), &bytes.Buffer{})
	require.ErrorIs(t, err, boom)
}

func TestRunUnknownMode(t *testing.T) {
	pm := &Pump{Pipe: newPipe(t, 16), Mode: "sigio"}
	require.Error(t, pm.Run(context.Background(), bytes.NewReader(nil), &bytes.Buffer{}))
}
