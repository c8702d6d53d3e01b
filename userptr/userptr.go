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

// Package userptr validates raw user addresses into typed, length-bounded
// views.
//
// A view authorizes bounded read/write of user memory for the duration of
// the current syscall, nothing more. It must not be stashed across a
// yield point: the validating invariant is that the task's mappings do
// not change while it is inside the kernel.
package userptr

import (
	"unsafe"

	"github.com/tokuhirom/sabos-sub001/mem"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// Slice produces a typed view of count elements of T at user address
// addr. It rejects ranges that wrap, cross the user/kernel boundary, or
// break T's alignment.
func Slice[T any](sp *mem.Space, addr, count uint64) ([]T, syserr.Errno) {
	var zero T
	size := uint64(unsafe.Sizeof(zero))
	align := uint64(unsafe.Alignof(zero))

	if count > 0 && size > 0 {
		if count > ^uint64(0)/size {
			return nil, syserr.EINVAL // count*size wraps
		}
	}
	n := count * size
	if addr+n < addr {
		return nil, syserr.EFAULT // range wraps the address space
	}
	if !sp.InUser(addr, n) {
		return nil, syserr.EFAULT
	}
	if addr%align != 0 {
		return nil, syserr.EALIGN
	}
	if count == 0 {
		return nil, syserr.OK
	}
	p := (*T)(unsafe.Add(sp.Base(), addr))
	return unsafe.Slice(p, count), syserr.OK
}

// Bytes is Slice for raw buffers: the (pointer, length) pair every
// syscall buffer argument uses.
func Bytes(sp *mem.Space, addr, length uint64) ([]byte, syserr.Errno) {
	return Slice[byte](sp, addr, length)
}

// Word reads one naturally-aligned uint32 at a user address. The futex
// syscalls use it.
func Word(sp *mem.Space, addr uint64) (*uint32, syserr.Errno) {
	v, errno := Slice[uint32](sp, addr, 1)
	if errno != syserr.OK {
		return nil, errno
	}
	return &v[0], syserr.OK
}
