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

// Package console is the kernel console device: SYS_WRITE output and the
// interrupt-fed input buffer SYS_READ drains.
package console

import (
	"io"

	"github.com/tokuhirom/sabos-sub001/internal/spin"
)

// inputCap bounds the keyboard input ring. Bytes arriving on a full ring
// are dropped, like any serial FIFO.
const inputCap = 1024

// clearSeq is the ANSI erase-display + home sequence.
const clearSeq = "\x1b[2J\x1b[H"

// Console is the device. Its lock is a device-global in the §5 sense: it
// is never held across a call into the scheduler.
type Console struct {
	mu  spin.Lock
	out io.Writer

	in   [inputCap]byte
	head int
	size int
}

// New builds a console writing output to out. A nil out discards output.
func New(out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	return &Console{out: out}
}

// Write sends p to the console output. Always accepts the whole buffer.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

// Clear erases the screen.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	io.WriteString(c.out, clearSeq)
}

// PushInput is the receive side of the keyboard interrupt: bytes go into
// the input ring. Returns how many fit.
func (c *Console) PushInput(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, b := range p {
		if c.size == inputCap {
			break
		}
		c.in[(c.head+c.size)%inputCap] = b
		c.size++
		n++
	}
	return n
}

// ReadInput drains up to len(p) buffered input bytes. Returns 0 when the
// ring is empty; the console never blocks.
func (c *Console) ReadInput(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for n < len(p) && c.size > 0 {
		p[n] = c.in[c.head]
		c.head = (c.head + 1) % inputCap
		c.size--
		n++
	}
	return n
}

// Buffered returns the number of input bytes waiting.
func (c *Console) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
