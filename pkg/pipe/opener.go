/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pipe

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// PollState reports what an Opener could do without blocking.
type PollState struct {
	Readable bool
	Writable bool
}

// Opener is one open session against a Pipe. It is safe for concurrent use,
// though concurrent reads on the same Opener compete for bytes like any two
// readers do.
type Opener struct {
	id       uuid.UUID
	pipe     *Pipe
	mode     Mode
	nonblock atomic.Bool
	closed   bool // guarded by pipe.mu
}

// ID uniquely identifies the opener in logs.
func (o *Opener) ID() uuid.UUID {
	return o.id
}

// Pipe returns the pipe this opener is attached to.
func (o *Opener) Pipe() *Pipe {
	return o.pipe
}

// Mode returns the read/write mode the opener was created with, including
// ModeNonblock if it is currently set.
func (o *Opener) Mode() Mode {
	if o.Nonblocking() {
		return o.mode | ModeNonblock
	}
	return o.mode
}

// Nonblocking reports whether Read and Write return ErrWouldBlock instead of
// waiting.
func (o *Opener) Nonblocking() bool {
	return o.nonblock.Load()
}

// SetNonblock switches the opener between blocking and non-blocking I/O.
// Operations already suspended are not affected.
func (o *Opener) SetNonblock(nonblock bool) {
	o.nonblock.Store(nonblock)
}

// checkLocked verifies the opener is still open and was opened with need.
func (o *Opener) checkLocked(need Mode) error {
	if o.closed {
		return invalidState("opener %s on pipe %s is closed", o.id, o.pipe.name)
	}
	if o.mode&need != need {
		return invalidState("opener %s on pipe %s is not open for %s", o.id, o.pipe.name, need)
	}
	return nil
}

// Read copies up to len(b) bytes out of the pipe, in the order they were
// written. It waits while the pipe is empty unless the opener is
// non-blocking, in which case it returns ErrWouldBlock. If ctx ends while
// waiting, Read returns ErrInterrupted having consumed nothing. A successful
// Read returns at least one byte; an empty b returns 0 immediately.
func (o *Opener) Read(ctx context.Context, b []byte) (int, error) {
	p := o.pipe
	p.mu.Lock()
	if err := o.checkLocked(ModeRead); err != nil {
		p.mu.Unlock()
		return 0, err
	}
	if len(b) == 0 {
		p.mu.Unlock()
		return 0, nil
	}
	for p.ring.empty() {
		if o.Nonblocking() {
			p.mu.Unlock()
			p.inst.wouldBlocked(ctx, opRead)
			return 0, ErrWouldBlock
		}
		internalLogger.debugf("pipe %s: opener %s reading: going to sleep", p.name, o.id)
		if err := p.sleep(ctx, &p.inq, opRead); err != nil {
			return 0, err
		}
		if err := o.checkLocked(ModeRead); err != nil {
			p.mu.Unlock()
			return 0, err
		}
	}
	n := p.ring.read(b)
	p.bytesRead += uint64(n)
	p.outq.wakeAll()
	p.mu.Unlock()

	p.inst.read(ctx, n)
	internalLogger.debugf("pipe %s: opener %s did read %d bytes", p.name, o.id, n)
	return n, nil
}

// Write deposits as much of b as currently fits and returns how much was
// accepted; a short write is not an error, callers loop for the rest (see
// WriteFull). It waits while the pipe is full unless the opener is
// non-blocking, in which case it returns ErrWouldBlock. If ctx ends while
// waiting, Write returns ErrInterrupted having deposited nothing.
//
// Every Write that deposits data wakes blocked readers and then notifies
// each subscriber once.
func (o *Opener) Write(ctx context.Context, b []byte) (int, error) {
	p := o.pipe
	p.mu.Lock()
	if err := o.checkLocked(ModeWrite); err != nil {
		p.mu.Unlock()
		return 0, err
	}
	if len(b) == 0 {
		p.mu.Unlock()
		return 0, nil
	}
	for p.ring.free() == 0 {
		if o.Nonblocking() {
			p.mu.Unlock()
			p.inst.wouldBlocked(ctx, opWrite)
			return 0, ErrWouldBlock
		}
		internalLogger.debugf("pipe %s: opener %s writing: going to sleep", p.name, o.id)
		if err := p.sleep(ctx, &p.outq, opWrite); err != nil {
			return 0, err
		}
		if err := o.checkLocked(ModeWrite); err != nil {
			p.mu.Unlock()
			return 0, err
		}
	}
	n := p.ring.write(b)
	p.bytesWritten += uint64(n)
	p.inq.wakeAll()
	targets := p.subscribersLocked()
	p.mu.Unlock()

	p.inst.wrote(ctx, n)
	p.notify(ctx, targets, n)
	internalLogger.debugf("pipe %s: opener %s did write %d bytes", p.name, o.id, n)
	return n, nil
}

// Poll reports whether a Read or Write would currently proceed without
// waiting. It never blocks beyond taking the pipe lock and never changes the
// pipe. A closed opener reports neither.
func (o *Opener) Poll() PollState {
	p := o.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if o.closed {
		return PollState{}
	}
	return p.pollLocked()
}

// WaitReady waits until at least one of the conditions set in want holds,
// and returns the state observed at that point. It listens for both data and
// space at once, the way poll(2) registers with both wait queues. If want
// has nothing set, the current state is returned immediately.
func (o *Opener) WaitReady(ctx context.Context, want PollState) (PollState, error) {
	p := o.pipe
	p.mu.Lock()
	for {
		if err := o.checkLocked(0); err != nil {
			p.mu.Unlock()
			return PollState{}, err
		}
		st := p.pollLocked()
		if (!want.Readable && !want.Writable) ||
			(want.Readable && st.Readable) || (want.Writable && st.Writable) {
			p.mu.Unlock()
			return st, nil
		}
		in, out := p.inq.prepare(), p.outq.prepare()
		p.mu.Unlock()

		waitCtx, done := p.inst.startWait(ctx, opPoll)
		select {
		case <-in:
		case <-out:
		case <-waitCtx.Done():
			err := interrupted(waitCtx)
			done(err)
			return PollState{}, err
		}
		done(nil)
		p.mu.Lock()
	}
}

// Close detaches the opener, dropping any notification subscription. The last
// Close on a pipe frees its buffer. Close only waits for the pipe lock and
// never fails except when called twice, which returns ErrInvalidState.
func (o *Opener) Close() error {
	p := o.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if o.closed {
		return invalidState("opener %s on pipe %s already closed", o.id, p.name)
	}
	o.closed = true
	p.releaseLocked(o)
	internalLogger.debugf("pipe %s: opener %s closed, readers=%d writers=%d",
		p.name, o.id, p.readers, p.writers)
	return nil
}
