// Package pump moves bytes between an io.Reader, a pipe and an io.Writer the
// way the poll and signal-driven consumers of a character device do.
package pump

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"

	"github.com/srediag/plugin-pipe/pkg/pipe"
)

// DefaultChunk is the scratch buffer size for each copy.
const DefaultChunk = 1024

// Mode selects how the consumer learns that data is available.
type Mode string

const (
	// ModePoll waits with Opener.WaitReady and then drains.
	ModePoll Mode = "poll"
	// ModeAsync subscribes an Inbox and drains on each notification.
	ModeAsync Mode = "async"
)

// Pump copies src through a pipe into dst.
type Pump struct {
	Pipe   *pipe.Pipe
	Mode   Mode
	Chunk  int
	Logger *zap.Logger
}

func scratch(bb *bytebufferpool.ByteBuffer, size int) []byte {
	if cap(bb.B) < size {
		bb.B = make([]byte, size)
	}
	return bb.B[:size]
}

func (p *Pump) chunk() int {
	if p.Chunk <= 0 {
		return DefaultChunk
	}
	return p.Chunk
}

func (p *Pump) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// Run feeds src into the pipe until EOF while a consumer drains it into
// dst. It returns once everything read from src has reached dst, or ctx ends.
func (p *Pump) Run(ctx context.Context, src io.Reader, dst io.Writer) error {
	w, err := p.Pipe.Open(ctx, pipe.ModeWrite)
	if err != nil {
		return err
	}
	defer w.Close()
	r, err := p.Pipe.Open(ctx, pipe.ModeRead|pipe.ModeNonblock)
	if err != nil {
		return err
	}
	defer r.Close()

	var drain func(context.Context) error
	switch p.Mode {
	case ModePoll:
		drain = func(ctx context.Context) error { return p.pollDrain(ctx, r, dst) }
	case ModeAsync:
		in := pipe.NewInbox()
		defer in.Close()
		if err := r.Subscribe(in.Notify); err != nil {
			return err
		}
		drain = func(ctx context.Context) error { return p.asyncDrain(ctx, r, in, dst) }
	default:
		return fmt.Errorf("unknown pump mode %q", p.Mode)
	}

	drainCtx, stop := context.WithCancel(ctx)
	defer stop()
	drained := make(chan error, 1)
	go func() { drained <- drain(drainCtx) }()

	fed, feedErr := p.feed(ctx, src, w)
	p.logger().Debug("input finished", zap.String("pipe", p.Pipe.Name()), zap.Int64("bytes", fed), zap.Error(feedErr))
	stop()
	if err := <-drained; err != nil {
		return err
	}
	return feedErr
}

func (p *Pump) feed(ctx context.Context, src io.Reader, w *pipe.Opener) (int64, error) {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	buf := scratch(bb, p.chunk())

	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			written, err := pipe.WriteFull(ctx, w, buf[:n])
			total += int64(written)
			if err != nil {
				return total, err
			}
		}
		if errors.Is(rerr, io.EOF) {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// drainNow copies everything currently held to dst without waiting.
func (p *Pump) drainNow(r *pipe.Opener, dst io.Writer, buf []byte) error {
	for {
		n, err := r.Read(context.Background(), buf)
		if errors.Is(err, pipe.ErrWouldBlock) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := dst.Write(buf[:n]); err != nil {
			return err
		}
	}
}

func (p *Pump) pollDrain(ctx context.Context, r *pipe.Opener, dst io.Writer) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	buf := scratch(bb, p.chunk())

	for {
		_, err := r.WaitReady(ctx, pipe.PollState{Readable: true})
		if errors.Is(err, pipe.ErrInterrupted) {
			return p.drainNow(r, dst, buf)
		}
		if err != nil {
			return err
		}
		if err := p.drainNow(r, dst, buf); err != nil {
			return err
		}
	}
}

func (p *Pump) asyncDrain(ctx context.Context, r *pipe.Opener, in *pipe.Inbox, dst io.Writer) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	buf := scratch(bb, p.chunk())

	for {
		n, err := in.Wait(ctx)
		if errors.Is(err, pipe.ErrInterrupted) {
			p.logger().Debug("drain stopped", zap.String("pipe", p.Pipe.Name()),
				zap.Uint64("coalesced", in.Coalesced()))
			return p.drainNow(r, dst, buf)
		}
		if err != nil {
			return err
		}
		p.logger().Debug("data ready", zap.String("pipe", n.Pipe), zap.Int("bytes", n.Bytes))
		if err := p.drainNow(r, dst, buf); err != nil {
			return err
		}
	}
}
