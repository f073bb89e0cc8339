// Package pipe provides a bounded, in-memory byte pipe shared by any number of
// concurrent readers and writers.
//
// A Pipe owns a circular buffer that is allocated when the first Opener is
// created and released when the last one is closed. Readers block while the
// pipe is empty and writers block while it is full, unless the Opener was
// created with ModeNonblock, in which case ErrWouldBlock is returned instead.
// Blocked operations honor context cancellation and return ErrInterrupted
// without transferring any bytes.
//
// Besides the blocking path, consumers can observe readiness with Poll and
// WaitReady, or subscribe to data-ready notifications with Subscribe. An
// Inbox turns notifications into something a consumer loop can wait on.
//
// Example usage:
//
//	p, err := pipe.New(pipe.DefaultConfig())
//	// ...
//	w, _ := p.Open(ctx, pipe.ModeWrite)
//	r, _ := p.Open(ctx, pipe.ModeRead)
//	n, err := w.Write(ctx, []byte("hello"))
//	// ...
//	buf := make([]byte, 64)
//	n, err = r.Read(ctx, buf)
//
// Writes may be short; use WriteFull to push a whole slice through.
package pipe
