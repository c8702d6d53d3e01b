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

// Package pal is the platform abstraction layer: the thin user-space
// shim mapping standard-library-shaped primitives onto SABOS syscalls.
//
// A user program hands the PAL its syscall door and a scratch region of
// its own memory; the PAL marshals buffers through the scratch region
// and the (pointer, length) syscall ABI. Errors come back as negated
// errnos in rax and surface here as syserr values.
package pal

import (
	"github.com/tokuhirom/sabos-sub001/sysnum"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// Sys is the door a Ring-3 program gets: the software interrupt and
// access to its own user-half memory. The kernel's trampoline Env
// satisfies it.
type Sys interface {
	Syscall(nr, a1, a2 uint64) int64
	Poke(addr uint64, p []byte)
	Peek(addr, n uint64) []byte
}

// paramArea reserves the head of the scratch region for parameter
// blocks (iovec and friends); bulk data follows.
const paramArea = 64

// Client issues syscalls on behalf of one program.
type Client struct {
	sys     Sys
	scratch uint64
	size    uint64
}

// NewClient builds a client marshaling through the caller's scratch
// region [scratch, scratch+size). The region must be at least a few
// hundred bytes; data transfers are chunked to fit.
func NewClient(sys Sys, scratch, size uint64) *Client {
	return &Client{sys: sys, scratch: scratch, size: size}
}

func (c *Client) dataAddr() uint64 { return c.scratch + paramArea }
func (c *Client) dataCap() uint64  { return c.size - paramArea }

func ret(v int64) error {
	if errno, ok := syserr.Decode(v); ok {
		return errno
	}
	return nil
}

// Write sends p to the console, chunking through the scratch region.
func (c *Client) Write(p []byte) int {
	total := 0
	for len(p) > 0 {
		n := uint64(len(p))
		if n > c.dataCap() {
			n = c.dataCap()
		}
		c.sys.Poke(c.dataAddr(), p[:n])
		r := c.sys.Syscall(sysnum.SYS_WRITE, c.dataAddr(), n)
		if r < 0 {
			break
		}
		total += int(r)
		p = p[n:]
	}
	return total
}

// WriteString is Write for strings.
func (c *Client) WriteString(s string) int {
	return c.Write([]byte(s))
}

// Read fills p with buffered console input; returns the byte count.
func (c *Client) Read(p []byte) int {
	n := uint64(len(p))
	if n > c.dataCap() {
		n = c.dataCap()
	}
	r := c.sys.Syscall(sysnum.SYS_READ, c.dataAddr(), n)
	if r <= 0 {
		return 0
	}
	copy(p, c.sys.Peek(c.dataAddr(), uint64(r)))
	return int(r)
}

// ClearScreen clears the console.
func (c *Client) ClearScreen() {
	c.sys.Syscall(sysnum.SYS_CLEAR_SCREEN, 0, 0)
}

// Exit terminates the program with status. It does not return.
func (c *Client) Exit(status int) {
	c.sys.Syscall(sysnum.SYS_EXIT, uint64(status), 0)
	panic("pal: SYS_EXIT returned")
}

// ClockMonotonicMS returns milliseconds since boot.
func (c *Client) ClockMonotonicMS() uint64 {
	return uint64(c.sys.Syscall(sysnum.SYS_CLOCK_MONOTONIC_MS, 0, 0))
}

// GetRandom fills p with kernel entropy.
func (c *Client) GetRandom(p []byte) error {
	n := uint64(len(p))
	if n > c.dataCap() {
		n = c.dataCap()
	}
	r := c.sys.Syscall(sysnum.SYS_GETRANDOM, c.dataAddr(), n)
	if err := ret(r); err != nil {
		return err
	}
	copy(p, c.sys.Peek(c.dataAddr(), uint64(r)))
	return nil
}

// GetPID returns the current task id.
func (c *Client) GetPID() uint64 {
	return uint64(c.sys.Syscall(sysnum.SYS_GETPID, 0, 0))
}

// SleepMS blocks the program for ms milliseconds.
func (c *Client) SleepMS(ms uint64) {
	c.sys.Syscall(sysnum.SYS_SLEEP_MS, ms, 0)
}

// ListDir returns the root directory listing as newline-joined names.
func (c *Client) ListDir() string {
	r := c.sys.Syscall(sysnum.SYS_LIST_DIR, c.dataAddr(), c.dataCap())
	if r <= 0 {
		return ""
	}
	return string(c.sys.Peek(c.dataAddr(), uint64(r)))
}
