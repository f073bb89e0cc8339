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
	"sync/atomic"
	"time"

	queuepkg "github.com/Workiva/go-datastructures/queue"
)

const inboxPollInterval = 50 * time.Millisecond

// ErrInboxClosed is returned by Inbox.Wait after Close.
var ErrInboxClosed = errors.New("pipe: inbox closed")

// Inbox turns data-ready notifications into something a consumer loop can
// wait on, much like a SIGIO handler setting a flag. Notifications arriving
// while one is already pending are coalesced into it; Coalesced counts them.
//
// Typical use:
//
//	in := pipe.NewInbox()
//	_ = r.Subscribe(in.Notify)
//	for {
//		if _, err := in.Wait(ctx); err != nil { ... }
//		// drain r with non-blocking reads
//	}
type Inbox struct {
	q         *queuepkg.Queue
	pending   atomic.Bool
	coalesced atomic.Uint64
}

// NewInbox creates an empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{q: queuepkg.New(1)}
}

// Notify is a NotifyFunc; pass it to Opener.Subscribe.
func (i *Inbox) Notify(n Notification) {
	if !i.pending.CompareAndSwap(false, true) {
		i.coalesced.Add(1)
		return
	}
	if err := i.q.Put(n); err != nil {
		i.pending.Store(false)
		internalLogger.debugf("inbox: drop notification for pipe %s: %v", n.Pipe, err)
	}
}

// Pending reports whether a notification is waiting to be taken.
func (i *Inbox) Pending() bool {
	return i.pending.Load()
}

// Coalesced returns how many notifications were folded into a pending one.
func (i *Inbox) Coalesced() uint64 {
	return i.coalesced.Load()
}

// Wait blocks until a notification is pending and takes it. It returns
// ErrInterrupted when ctx ends and ErrInboxClosed after Close.
//
// The underlying queue cannot select on ctx, so Wait polls it in slices of
// inboxPollInterval: a cancellation is noticed up to that long after it
// happens. Notifications and Close wake Wait immediately, and the Inbox
// remains usable after a cancelled Wait.
func (i *Inbox) Wait(ctx context.Context) (Notification, error) {
	for {
		if ctx.Err() != nil {
			return Notification{}, interrupted(ctx)
		}
		items, err := i.q.Poll(1, inboxPollInterval)
		switch {
		case err == nil && len(items) > 0:
			i.pending.Store(false)
			n, _ := items[0].(Notification)
			return n, nil
		case errors.Is(err, queuepkg.ErrDisposed):
			return Notification{}, ErrInboxClosed
		case err != nil && !errors.Is(err, queuepkg.ErrTimeout):
			return Notification{}, err
		}
	}
}

// Close releases any goroutine blocked in Wait. Notifications after Close
// are dropped.
func (i *Inbox) Close() {
	i.q.Dispose()
}
