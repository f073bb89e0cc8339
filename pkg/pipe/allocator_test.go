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
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapAllocatorLimit(t *testing.T) {
	a := NewHeapAllocator(64)
	buf, err := a.Alloc(64)
	require.NoError(t, err)
	assert.Len(t, buf, 64)
	a.Free(buf)

	_, err = a.Alloc(65)
	require.ErrorIs(t, err, ErrResourceExhausted)

	buf, err = NewHeapAllocator(0).Alloc(128)
	require.NoError(t, err)
	assert.Len(t, buf, 128)
}

func TestCanAllocate(t *testing.T) {
	assert.True(t, canAllocate(1))
	if runtime.GOOS != "linux" {
		t.Skip("memory statistics only asserted on linux")
	}
	assert.False(t, canAllocate(math.MaxUint64))
}

func TestOpenLargerThanMax(t *testing.T) {
	conf := DefaultConfig()
	conf.Name = t.Name()
	conf.Capacity = 4096
	conf.MaxCapacity = 0
	conf.Allocator = NewHeapAllocator(1024)
	p, err := New(conf)
	require.NoError(t, err)

	_, err = p.Open(context.Background(), ModeRead)
	require.ErrorIs(t, err, ErrResourceExhausted)
	assert.False(t, p.Stats().Allocated)
}

type shortAllocator struct{ freed int }

func (a *shortAllocator) Alloc(size int) ([]byte, error) { return make([]byte, size/2), nil }
func (a *shortAllocator) Free([]byte)                    { a.freed++ }

func TestOpenRejectsShortBuffer(t *testing.T) {
	alloc := &shortAllocator{}
	p := testPipe(t, 16, alloc)
	_, err := p.Open(context.Background(), ModeWrite)
	require.ErrorIs(t, err, ErrResourceExhausted)
	assert.Equal(t, 1, alloc.freed)
}
