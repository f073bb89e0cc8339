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

// waitQueue is an edge-triggered broadcast condition.
//
// Waiters take the current channel with prepare while holding the pipe lock,
// drop the lock and block on it; wakeAll closes the channel, releasing every
// waiter at once, and the next prepare starts a new generation. A waiter that
// gives up (context done) simply stops listening, so nothing stays registered.
//
// NOT thread-safe: both methods must be called with the owning pipe's lock held.
type waitQueue struct {
	ch chan struct{}
}

func (q *waitQueue) prepare() <-chan struct{} {
	if q.ch == nil {
		q.ch = make(chan struct{})
	}
	return q.ch
}

// wakeAll reports whether anyone was waiting.
func (q *waitQueue) wakeAll() bool {
	if q.ch == nil {
		return false
	}
	close(q.ch)
	q.ch = nil
	return true
}
