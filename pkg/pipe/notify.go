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
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
)

// Notification tells a subscriber that a write deposited data.
type Notification struct {
	// Pipe is the name of the pipe that received data.
	Pipe string
	// Bytes is how much the triggering write accepted.
	Bytes int
}

// NotifyFunc receives data-ready notifications. It must not block for long:
// with the default dispatcher it runs on the writer's goroutine.
type NotifyFunc func(Notification)

// Dispatcher runs notification callbacks. Dispatch must not retain fn after
// it has run and must be safe for concurrent use.
type Dispatcher interface {
	Dispatch(fn func())
}

type inlineDispatcher struct{}

func (inlineDispatcher) Dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			internalLogger.errorf("notify callback panic: %v", r)
		}
	}()
	fn()
}

// PoolDispatcher delivers notifications on a bounded goroutine pool so slow
// subscribers never hold up writers. When every worker is busy the
// notification is dropped and counted; subscribers must tolerate coalescing.
type PoolDispatcher struct {
	pool    *ants.Pool
	dropped atomic.Uint64
}

// NewPoolDispatcher creates a dispatcher with at most size workers.
func NewPoolDispatcher(size int) (*PoolDispatcher, error) {
	pool, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(func(r interface{}) {
			internalLogger.errorf("notify callback panic: %v", r)
		}))
	if err != nil {
		return nil, fmt.Errorf("create notify pool: %w", err)
	}
	return &PoolDispatcher{pool: pool}, nil
}

// Dispatch submits fn to the pool without waiting for a free worker. If the
// pool is saturated fn is dropped; if it has been released fn runs inline.
func (d *PoolDispatcher) Dispatch(fn func()) {
	err := d.pool.Submit(fn)
	switch {
	case err == nil:
	case errors.Is(err, ants.ErrPoolOverload):
		d.dropped.Add(1)
		internalLogger.debugf("notify pool saturated, notification dropped")
	default:
		internalLogger.warnf("notify dispatch failed, delivering inline: %v", err)
		inlineDispatcher{}.Dispatch(fn)
	}
}

// Dropped returns how many notifications were discarded because every worker
// was busy.
func (d *PoolDispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Running returns the number of callbacks currently executing.
func (d *PoolDispatcher) Running() int {
	return d.pool.Running()
}

// Release stops the pool's workers. Later notifications are delivered inline.
func (d *PoolDispatcher) Release() {
	d.pool.Release()
}

// Subscribe registers fn to be called after every write that deposits data,
// replacing any callback this opener registered before. The subscription
// ends on Unsubscribe or Close.
func (o *Opener) Subscribe(fn NotifyFunc) error {
	if fn == nil {
		return invalidState("nil notify callback")
	}
	p := o.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := o.checkLocked(0); err != nil {
		return err
	}
	p.subscribers[o] = fn
	internalLogger.debugf("pipe %s: opener %s subscribed, subscribers=%d", p.name, o.id, len(p.subscribers))
	return nil
}

// Unsubscribe removes the opener's subscription, if any.
func (o *Opener) Unsubscribe() error {
	p := o.pipe
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := o.checkLocked(0); err != nil {
		return err
	}
	delete(p.subscribers, o)
	return nil
}

func (p *Pipe) subscribersLocked() []NotifyFunc {
	if len(p.subscribers) == 0 {
		return nil
	}
	fns := make([]NotifyFunc, 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	return fns
}

// notify fires one notification per target. Called without p.mu held.
func (p *Pipe) notify(ctx context.Context, targets []NotifyFunc, n int) {
	if len(targets) == 0 {
		return
	}
	ev := Notification{Pipe: p.name, Bytes: n}
	for _, fn := range targets {
		fn := fn
		p.dispatcher.Dispatch(func() { fn(ev) })
	}
	p.inst.notified(ctx, len(targets))
}
