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
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

// Allocations at or above this size are checked against available memory.
const headroomCheckThreshold = 1 << 20

// Allocator provides and releases ring buffers. Alloc must return a slice of
// exactly size bytes or an error; Free is called once per successful Alloc,
// with the pipe lock held, and must not block.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte)
}

type heapAllocator struct {
	max int
}

// NewHeapAllocator returns an Allocator backed by the Go heap. Requests above
// max (when max > 0), or larger than the memory the host reports available,
// fail with ErrResourceExhausted.
func NewHeapAllocator(max int) Allocator {
	return heapAllocator{max: max}
}

func (a heapAllocator) Alloc(size int) ([]byte, error) {
	if a.max > 0 && size > a.max {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrResourceExhausted, size, a.max)
	}
	if size >= headroomCheckThreshold && !canAllocate(uint64(size)) {
		return nil, fmt.Errorf("%w: %d bytes exceeds available memory", ErrResourceExhausted, size)
	}
	return make([]byte, size), nil
}

func (a heapAllocator) Free(buf []byte) {}

// canAllocate reports whether the host has at least size bytes available.
// If memory statistics are unavailable the allocation is allowed.
func canAllocate(size uint64) bool {
	vm, err := mem.VirtualMemory()
	if err != nil {
		internalLogger.debugf("virtual memory stats unavailable: %v", err)
		return true
	}
	return size <= vm.Available
}
