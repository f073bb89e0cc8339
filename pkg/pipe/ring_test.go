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
	mathrand "math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpans(t *testing.T) {
	cases := []struct {
		name                     string
		start, avail, want, size int
		first, second            span
	}{
		{"nothing available", 3, 0, 5, 8, span{3, 0}, span{}},
		{"nothing wanted", 3, 4, 0, 8, span{3, 0}, span{}},
		{"contiguous", 2, 4, 10, 8, span{2, 4}, span{}},
		{"capped by want", 2, 4, 3, 8, span{2, 3}, span{}},
		{"ends on boundary", 5, 3, 3, 8, span{5, 3}, span{}},
		{"wraps", 6, 5, 10, 8, span{6, 2}, span{0, 3}},
		{"wraps capped by want", 6, 5, 4, 8, span{6, 2}, span{0, 2}},
		{"starts at end slot", 7, 7, 7, 8, span{7, 1}, span{0, 6}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			first, second := spans(c.start, c.avail, c.want, c.size)
			assert.Equal(t, c.first, first)
			assert.Equal(t, c.second, second)
		})
	}
}

func TestSpansProperty(t *testing.T) {
	rnd := mathrand.New(mathrand.NewSource(1))
	for i := 0; i < 10000; i++ {
		size := 2 + rnd.Intn(64)
		start := rnd.Intn(size)
		avail := rnd.Intn(size)
		want := rnd.Intn(2 * size)
		first, second := spans(start, avail, want, size)

		total := min(want, avail)
		require.Equal(t, total, first.n+second.n)
		require.Equal(t, start, first.off)
		require.LessOrEqual(t, first.off+first.n, size)
		require.Equal(t, 0, second.off)
		if second.n > 0 {
			require.Equal(t, size, first.off+first.n, "second run only after reaching the end")
		}
	}
}

func TestRingWraparound(t *testing.T) {
	r := &ring{}
	r.reset(make([]byte, 8))

	assert.Equal(t, 5, r.write([]byte("abcde")))
	out := make([]byte, 3)
	assert.Equal(t, 3, r.read(out))
	assert.Equal(t, "abc", string(out))

	assert.Equal(t, 5, r.free())
	assert.Equal(t, 5, r.write([]byte("fghij")))
	assert.Equal(t, 2, r.wp, "write cursor wrapped")
	assert.Equal(t, 7, r.held())
	assert.Equal(t, 0, r.free())

	out = make([]byte, 7)
	assert.Equal(t, 7, r.read(out))
	assert.Equal(t, "defghij", string(out))
	assert.True(t, r.empty())
}

func TestRingAgainstModel(t *testing.T) {
	rnd := mathrand.New(mathrand.NewSource(7))
	for round := 0; round < 50; round++ {
		size := MinCapacity + rnd.Intn(40)
		r := &ring{}
		r.reset(make([]byte, size))
		var model []byte
		var next byte

		for op := 0; op < 2000; op++ {
			if rnd.Intn(2) == 0 {
				src := make([]byte, rnd.Intn(2*size))
				for i := range src {
					src[i] = next
					next++
				}
				free := r.free()
				n := r.write(src)
				require.Equal(t, min(len(src), free), n, "short write returns exactly the free space")
				model = append(model, src[:n]...)
				// Unaccepted bytes will be resubmitted by a real caller; keep the sequence dense.
				next -= byte(len(src) - n)
			} else {
				dst := make([]byte, rnd.Intn(2*size))
				n := r.read(dst)
				require.Equal(t, min(len(dst), len(model)), n)
				require.Equal(t, string(model[:n]), string(dst[:n]), "FIFO order")
				model = model[n:]
			}
			require.Equal(t, len(model), r.held())
			require.LessOrEqual(t, r.held(), size-1)
			require.Equal(t, size-1, r.held()+r.free())
			require.True(t, r.rp >= 0 && r.rp < size)
			require.True(t, r.wp >= 0 && r.wp < size)
		}
	}
}

func TestRingUnallocated(t *testing.T) {
	r := &ring{}
	assert.True(t, r.empty())
	assert.Equal(t, 0, r.held())
	assert.Equal(t, 0, r.free())
	assert.Equal(t, 0, r.size())
}
