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

import "fmt"

// span is one contiguous run of the ring, buf[off:off+n].
type span struct {
	off int
	n   int
}

// spans returns the runs that cover min(want, avail) bytes starting at
// cursor start in a ring of the given size. second is empty unless the
// region wraps past the end of the ring, in which case it starts at 0.
func spans(start, avail, want, size int) (first, second span) {
	n := min(want, avail)
	first.off = start
	if n <= 0 {
		return first, second
	}
	first.n = min(n, size-start)
	if rest := n - first.n; rest > 0 {
		second.n = rest
	}
	return first, second
}

// ring is the circular buffer behind a Pipe. rp == wp means empty; one byte
// is always left unused so that a full ring is distinguishable from an
// empty one. Not thread-safe: the owning Pipe's lock must be held.
type ring struct {
	buf []byte
	rp  int
	wp  int
}

func (r *ring) reset(buf []byte) {
	r.buf = buf
	r.rp = 0
	r.wp = 0
}

func (r *ring) size() int {
	return len(r.buf)
}

func (r *ring) empty() bool {
	return r.rp == r.wp
}

// held is the number of unread bytes.
func (r *ring) held() int {
	if len(r.buf) == 0 {
		return 0
	}
	return (r.wp - r.rp + len(r.buf)) % len(r.buf)
}

// free is the number of bytes a write may deposit right now.
func (r *ring) free() int {
	if len(r.buf) == 0 {
		return 0
	}
	if r.rp == r.wp {
		return len(r.buf) - 1
	}
	return (r.rp - r.wp - 1 + len(r.buf)) % len(r.buf)
}

// read moves up to len(p) unread bytes into p and advances rp.
func (r *ring) read(p []byte) int {
	first, second := spans(r.rp, r.held(), len(p), len(r.buf))
	n := copy(p, r.buf[first.off:first.off+first.n])
	n += copy(p[n:], r.buf[second.off:second.off+second.n])
	r.rp = r.advance(r.rp, n)
	return n
}

// write deposits as much of p as fits and advances wp.
func (r *ring) write(p []byte) int {
	first, second := spans(r.wp, r.free(), len(p), len(r.buf))
	n := copy(r.buf[first.off:first.off+first.n], p)
	n += copy(r.buf[second.off:second.off+second.n], p[n:])
	r.wp = r.advance(r.wp, n)
	return n
}

func (r *ring) advance(cursor, n int) int {
	cursor = (cursor + n) % len(r.buf)
	if cursor < 0 || cursor >= len(r.buf) {
		panic(fmt.Sprintf("pipe: cursor %d out of range [0,%d)", cursor, len(r.buf)))
	}
	return cursor
}
