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

// Package mem models the machine's identity-mapped address space.
//
// The kernel adopts the firmware's identity mapping: one flat region,
// virt == phys. The region is split at KernelBase into a user half
// [0, KernelBase) and a kernel half [KernelBase, Size). Addresses at the
// syscall boundary are plain uint64 offsets into this space; nothing below
// this package dereferences a user address without going through a
// validated view.
package mem

import (
	"encoding/binary"
	"fmt"
	"unsafe"
)

// PageSize is the only page size the machine uses.
const PageSize = 4096

// Space is the flat identity-mapped address space.
//
// Built once at boot and never resized. All mutation goes through typed
// accessors; the backing arena is not exported.
type Space struct {
	arena      []byte
	base       unsafe.Pointer
	kernelBase uint64
}

// NewSpace builds an address space of size bytes split at kernelBase.
// Both must be page-aligned and kernelBase must fall inside the space.
func NewSpace(size, kernelBase uint64) (*Space, error) {
	if size == 0 || size%PageSize != 0 {
		return nil, fmt.Errorf("mem: size must be a multiple of %d, got %d", PageSize, size)
	}
	if kernelBase == 0 || kernelBase%PageSize != 0 {
		return nil, fmt.Errorf("mem: kernel base must be a non-zero multiple of %d, got %d", PageSize, kernelBase)
	}
	if kernelBase >= size {
		return nil, fmt.Errorf("mem: kernel base %#x outside space of size %#x", kernelBase, size)
	}
	arena := make([]byte, size)
	return &Space{
		arena:      arena,
		base:       unsafe.Pointer(&arena[0]),
		kernelBase: kernelBase,
	}, nil
}

// Size returns the total size of the space in bytes.
func (s *Space) Size() uint64 { return uint64(len(s.arena)) }

// KernelBase returns the first address of the kernel half.
func (s *Space) KernelBase() uint64 { return s.kernelBase }

// InRange reports whether [addr, addr+n) lies inside the space without
// wrapping.
func (s *Space) InRange(addr, n uint64) bool {
	end := addr + n
	if end < addr {
		return false
	}
	return end <= uint64(len(s.arena))
}

// InUser reports whether [addr, addr+n) lies entirely in the user half.
func (s *Space) InUser(addr, n uint64) bool {
	end := addr + n
	if end < addr {
		return false
	}
	return end <= s.kernelBase
}

// Bytes returns the backing bytes of [addr, addr+n).
// The slice aliases the arena; it is a window, not a copy.
func (s *Space) Bytes(addr, n uint64) ([]byte, error) {
	if !s.InRange(addr, n) {
		return nil, fmt.Errorf("mem: range [%#x,+%#x) outside space", addr, n)
	}
	return s.arena[addr : addr+n : addr+n], nil
}

// Base returns the host pointer of address 0. Only the allocator and the
// validated-view machinery use it.
func (s *Space) Base() unsafe.Pointer { return s.base }

// ReadU64 reads the little-endian word at addr.
func (s *Space) ReadU64(addr uint64) (uint64, error) {
	b, err := s.Bytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU64 writes v as a little-endian word at addr.
func (s *Space) WriteU64(addr, v uint64) error {
	b, err := s.Bytes(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}
