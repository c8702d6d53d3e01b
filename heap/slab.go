/*
 * Copyright 2025 SABOS Authors
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

// Package heap is the kernel's size-classed slab allocator.
//
// The heap region is split into seven fixed size classes (32B..2048B) and a
// large-object arena. Each class is a free list + bump pointer hybrid:
// freed slots go on an intrusive singly-linked list, untouched space is cut
// off with a bump pointer. Both paths are O(1). Objects above 2048 bytes
// and alignments above 16 go to the large arena (first-fit + trailing
// bump, no coalescing).
//
// The whole allocator sits behind one short spinlock so that allocation is
// legal from interrupt context. Failure is returning nil; the allocator
// itself never panics.
package heap

import (
	"fmt"
	"unsafe"

	"github.com/tokuhirom/sabos-sub001/internal/spin"
)

const (
	// NumClasses is the number of small size classes.
	NumClasses = 7

	// MaxSlotSize is the largest small-class slot. Bigger requests go to
	// the large arena.
	MaxSlotSize = 2048

	// MinAlign is the alignment every class slot guarantees.
	MinAlign = 16

	// minRegion is the smallest workable heap region.
	minRegion = 64 * 1024
)

// ClassSizes lists the slot size of each class, smallest first.
var ClassSizes = [NumClasses]int{32, 64, 128, 256, 512, 1024, 2048}

// slab is one size class: a contiguous region, a bump offset into it, and
// an intrusive free list. A free slot's first word holds the host address
// of the next free slot; 0 terminates the list.
type slab struct {
	base     unsafe.Pointer
	size     int
	slot     int
	bump     int
	freeHead uintptr
	freeLen  int
}

func (c *slab) owns(p unsafe.Pointer) bool {
	off := uintptr(p) - uintptr(c.base)
	return uintptr(p) >= uintptr(c.base) && off < uintptr(c.size)
}

func (c *slab) alloc() unsafe.Pointer {
	if c.freeHead != 0 {
		p := unsafe.Pointer(c.freeHead)
		c.freeHead = *(*uintptr)(p)
		c.freeLen--
		return p
	}
	if c.bump+c.slot > c.size {
		return nil
	}
	p := unsafe.Add(c.base, c.bump)
	c.bump += c.slot
	return p
}

func (c *slab) dealloc(p unsafe.Pointer) {
	*(*uintptr)(p) = c.freeHead
	c.freeHead = uintptr(p)
	c.freeLen++
}

// Heap is the kernel heap. Construct once at boot with New; all methods
// are safe from any task and from interrupt context.
type Heap struct {
	mu      spin.Lock
	classes [NumClasses]slab
	large   largeArena
	region  []byte
}

// New builds a heap over region. Roughly 1/16 of the region goes to each
// size class; the remainder is the large arena.
func New(region []byte) (*Heap, error) {
	if len(region) < minRegion {
		return nil, fmt.Errorf("heap: region too small, need at least %d bytes, got %d", minRegion, len(region))
	}
	h := &Heap{region: region}
	base := unsafe.Pointer(&region[0])

	off := 0
	classRegion := len(region) / 16
	for i := range h.classes {
		// keep every slot 16-aligned by aligning the class base
		start := alignUp(off, MinAlign)
		size := classRegion - (start - off)
		size -= size % ClassSizes[i]
		h.classes[i] = slab{
			base: unsafe.Add(base, start),
			size: size,
			slot: ClassSizes[i],
		}
		off += classRegion
	}

	start := alignUp(off, MinAlign)
	h.large = largeArena{
		base: unsafe.Add(base, start),
		size: len(region) - start,
	}
	return h, nil
}

// Alloc returns a pointer to size bytes aligned to align, or nil when the
// owning region is exhausted. align must be a power of two.
func (h *Heap) Alloc(size, align int) unsafe.Pointer {
	if size <= 0 || align <= 0 || align&(align-1) != 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if size > MaxSlotSize || align > MinAlign {
		return h.large.alloc(size, align)
	}
	return h.classes[sizeToClass(size)].alloc()
}

// Dealloc returns an allocation to the heap. size and align must match the
// Alloc call that produced p.
func (h *Heap) Dealloc(p unsafe.Pointer, size, align int) {
	if p == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if size > MaxSlotSize || align > MinAlign {
		h.large.dealloc(p, size)
		return
	}
	c := &h.classes[sizeToClass(size)]
	if !c.owns(p) {
		panic("heap: dealloc outside owning class region")
	}
	c.dealloc(p)
}

// Held reports whether the allocator lock is taken. The preempt path uses
// it to refuse switching mid-allocation.
func (h *Heap) Held() bool { return h.mu.Held() }

// CriticalSection runs fn with the allocator lock held, for callers that
// need multi-step heap state to stay consistent. fn must not allocate.
func (h *Heap) CriticalSection(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

// BumpBytes returns how far class's bump pointer has advanced.
func (h *Heap) BumpBytes(class int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.classes[class].bump
}

// FreeListLen returns the number of slots on class's free list.
func (h *Heap) FreeListLen(class int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.classes[class].freeLen
}

// LargeLive returns the number of live large-arena allocations.
func (h *Heap) LargeLive() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.large.live
}

// Available returns an estimate of the allocatable bytes left: untouched
// bump space plus free-listed slots and blocks.
func (h *Heap) Available() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for i := range h.classes {
		c := &h.classes[i]
		total += c.size - c.bump + c.freeLen*c.slot
	}
	total += h.large.available()
	return total
}

// SizeToClass returns the class index serving a request of size bytes, or
// -1 for large-arena sizes.
func SizeToClass(size int) int {
	if size <= 0 || size > MaxSlotSize {
		return -1
	}
	return sizeToClass(size)
}

func sizeToClass(size int) int {
	for i, s := range ClassSizes {
		if size <= s {
			return i
		}
	}
	return -1 // unreachable, callers check MaxSlotSize
}

func alignUp(v, align int) int {
	return (v + align - 1) &^ (align - 1)
}

// AsBytes views an allocation as a byte slice.
func AsBytes(p unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(p), n)
}
