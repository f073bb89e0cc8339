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
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Mode selects how an Opener is attached to a Pipe.
type Mode uint8

const (
	// ModeRead counts the opener as a reader.
	ModeRead Mode = 1 << iota
	// ModeWrite counts the opener as a writer.
	ModeWrite
	// ModeNonblock makes Read and Write return ErrWouldBlock instead of waiting.
	ModeNonblock

	// ModeReadWrite opens for both directions.
	ModeReadWrite = ModeRead | ModeWrite
)

func (m Mode) String() string {
	var parts []string
	if m&ModeRead != 0 {
		parts = append(parts, "read")
	}
	if m&ModeWrite != 0 {
		parts = append(parts, "write")
	}
	if m&ModeNonblock != 0 {
		parts = append(parts, "nonblock")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Pipe is a bounded byte stream shared by every Opener created from it.
// The ring buffer exists only while at least one Opener is open.
type Pipe struct {
	name        string
	maxCapacity int
	alloc       Allocator
	dispatcher  Dispatcher
	inst        *instruments

	mu          sync.Mutex
	capacity    int
	ring        ring
	readers     int
	writers     int
	inq         waitQueue // data available
	outq        waitQueue // space available
	subscribers map[*Opener]NotifyFunc

	bytesRead    uint64
	bytesWritten uint64
}

// Stats is a point-in-time snapshot of a Pipe.
type Stats struct {
	Name         string
	Capacity     int
	Allocated    bool
	Held         int
	Free         int
	Readers      int
	Writers      int
	Subscribers  int
	BytesRead    uint64
	BytesWritten uint64
}

// New creates an unopened Pipe. A nil config uses DefaultConfig.
func New(config *Config) (*Pipe, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := VerifyConfig(config); err != nil {
		return nil, err
	}
	inst, err := newInstruments(config.Name, config.Meter, config.Tracer)
	if err != nil {
		return nil, fmt.Errorf("pipe %s: %w", config.Name, err)
	}
	p := &Pipe{
		name:        config.Name,
		maxCapacity: config.MaxCapacity,
		alloc:       config.Allocator,
		dispatcher:  config.Dispatcher,
		inst:        inst,
		capacity:    config.Capacity,
		subscribers: make(map[*Opener]NotifyFunc),
	}
	if p.alloc == nil {
		p.alloc = NewHeapAllocator(config.MaxCapacity)
	}
	if p.dispatcher == nil {
		p.dispatcher = inlineDispatcher{}
	}
	return p, nil
}

// Name returns the configured pipe name.
func (p *Pipe) Name() string {
	return p.name
}

// Open attaches a new Opener in the given mode. The first Opener allocates
// the ring buffer; if that fails the pipe stays unopened and the error
// wraps ErrResourceExhausted.
func (p *Pipe) Open(ctx context.Context, mode Mode) (*Opener, error) {
	if mode&ModeReadWrite == 0 {
		return nil, invalidState("open mode %s has neither read nor write", mode)
	}
	if ctx.Err() != nil {
		return nil, interrupted(ctx)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readers == 0 && p.writers == 0 {
		buf, err := p.allocLocked()
		if err != nil {
			internalLogger.warnf("pipe %s: open failed: %v", p.name, err)
			return nil, err
		}
		p.ring.reset(buf)
		internalLogger.debugf("pipe %s: allocated %d byte buffer", p.name, len(buf))
	}
	o := &Opener{
		id:   uuid.New(),
		pipe: p,
		mode: mode & ModeReadWrite,
	}
	o.nonblock.Store(mode&ModeNonblock != 0)
	if mode&ModeRead != 0 {
		p.readers++
	}
	if mode&ModeWrite != 0 {
		p.writers++
	}
	internalLogger.debugf("pipe %s: opener %s opened %s, readers=%d writers=%d",
		p.name, o.id, mode, p.readers, p.writers)
	return o, nil
}

func (p *Pipe) allocLocked() ([]byte, error) {
	buf, err := p.alloc.Alloc(p.capacity)
	if err != nil {
		if !errors.Is(err, ErrResourceExhausted) {
			err = fmt.Errorf("%w: %w", ErrResourceExhausted, err)
		}
		return nil, fmt.Errorf("pipe %s: %w", p.name, err)
	}
	if len(buf) != p.capacity {
		p.alloc.Free(buf)
		return nil, fmt.Errorf("pipe %s: %w: allocator returned %d bytes, want %d",
			p.name, ErrResourceExhausted, len(buf), p.capacity)
	}
	return buf, nil
}

// release drops one opener's counts and frees the ring when none remain.
// Caller holds p.mu.
func (p *Pipe) releaseLocked(o *Opener) {
	delete(p.subscribers, o)
	if o.mode&ModeRead != 0 {
		p.readers--
	}
	if o.mode&ModeWrite != 0 {
		p.writers--
	}
	// Sleepers on this opener must notice it is gone; everyone else re-checks.
	p.inq.wakeAll()
	p.outq.wakeAll()
	if p.readers == 0 && p.writers == 0 {
		buf := p.ring.buf
		p.ring.reset(nil)
		p.alloc.Free(buf)
		internalLogger.debugf("pipe %s: last opener closed, buffer released", p.name)
	}
}

// SetCapacity changes the ring size used by the next first open. It fails
// with ErrInvalidState while any Opener is open.
func (p *Pipe) SetCapacity(capacity int) error {
	if err := verifyCapacity(capacity, p.maxCapacity); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ring.buf != nil {
		return invalidState("pipe %s: capacity change while open (readers=%d writers=%d)",
			p.name, p.readers, p.writers)
	}
	p.capacity = capacity
	return nil
}

// Capacity returns the configured ring size.
func (p *Pipe) Capacity() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity
}

// Stats returns a snapshot of the pipe's state.
func (p *Pipe) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Name:         p.name,
		Capacity:     p.capacity,
		Allocated:    p.ring.buf != nil,
		Held:         p.ring.held(),
		Free:         p.ring.free(),
		Readers:      p.readers,
		Writers:      p.writers,
		Subscribers:  len(p.subscribers),
		BytesRead:    p.bytesRead,
		BytesWritten: p.bytesWritten,
	}
}

// sleep parks the caller on q until it is woken or ctx ends. It is entered
// with p.mu held and returns with it held on success; on cancellation it
// returns ErrInterrupted with p.mu released.
func (p *Pipe) sleep(ctx context.Context, q *waitQueue, op string) error {
	ch := q.prepare()
	p.mu.Unlock()

	ctx, done := p.inst.startWait(ctx, op)
	select {
	case <-ch:
	case <-ctx.Done():
		err := interrupted(ctx)
		done(err)
		return err
	}
	done(nil)
	p.mu.Lock()
	return nil
}

func (p *Pipe) pollLocked() PollState {
	return PollState{
		Readable: p.ring.buf != nil && !p.ring.empty(),
		Writable: p.ring.free() > 0,
	}
}
