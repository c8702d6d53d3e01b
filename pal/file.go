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

package pal

import (
	"encoding/binary"

	"github.com/tokuhirom/sabos-sub001/sysnum"
)

// Handle seek whence values, mirroring the kernel's.
const (
	SeekStart   uint64 = 0
	SeekCurrent uint64 = 1
	SeekEnd     uint64 = 2
)

// writeIovec stores an iovec parameter block at the scratch head.
func (c *Client) writeIovec(addr, length uint64) uint64 {
	var block [16]byte
	binary.LittleEndian.PutUint64(block[:], addr)
	binary.LittleEndian.PutUint64(block[8:], length)
	c.sys.Poke(c.scratch, block[:])
	return c.scratch
}

// Open opens (or creates) the file at path and returns its handle.
func (c *Client) Open(path string) (int64, error) {
	c.sys.Poke(c.dataAddr(), []byte(path))
	r := c.sys.Syscall(sysnum.SYS_OPEN, c.dataAddr(), uint64(len(path)))
	if err := ret(r); err != nil {
		return 0, err
	}
	return r, nil
}

// HandleWrite writes p at the handle's cursor.
func (c *Client) HandleWrite(h int64, p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		n := uint64(len(p))
		if n > c.dataCap() {
			n = c.dataCap()
		}
		c.sys.Poke(c.dataAddr(), p[:n])
		iov := c.writeIovec(c.dataAddr(), n)
		r := c.sys.Syscall(sysnum.SYS_HANDLE_WRITE, uint64(h), iov)
		if err := ret(r); err != nil {
			return total, err
		}
		total += int(r)
		p = p[n:]
	}
	return total, nil
}

// HandleRead reads into p from the handle's cursor.
func (c *Client) HandleRead(h int64, p []byte) (int, error) {
	n := uint64(len(p))
	if n > c.dataCap() {
		n = c.dataCap()
	}
	iov := c.writeIovec(c.dataAddr(), n)
	r := c.sys.Syscall(sysnum.SYS_HANDLE_READ, uint64(h), iov)
	if err := ret(r); err != nil {
		return 0, err
	}
	copy(p, c.sys.Peek(c.dataAddr(), uint64(r)))
	return int(r), nil
}

// HandleClose releases the handle.
func (c *Client) HandleClose(h int64) error {
	return ret(c.sys.Syscall(sysnum.SYS_HANDLE_CLOSE, uint64(h), 0))
}

// HandleStat returns the resource size behind the handle.
func (c *Client) HandleStat(h int64) (uint64, error) {
	r := c.sys.Syscall(sysnum.SYS_HANDLE_STAT, uint64(h), c.scratch)
	if err := ret(r); err != nil {
		return 0, err
	}
	st := c.sys.Peek(c.scratch, 8)
	return binary.LittleEndian.Uint64(st), nil
}

// HandleSeek repositions the handle's cursor.
func (c *Client) HandleSeek(h int64, off int64, whence uint64) (int64, error) {
	var block [16]byte
	binary.LittleEndian.PutUint64(block[:], whence)
	binary.LittleEndian.PutUint64(block[8:], uint64(off))
	c.sys.Poke(c.scratch, block[:])
	r := c.sys.Syscall(sysnum.SYS_HANDLE_SEEK, uint64(h), c.scratch)
	if err := ret(r); err != nil {
		return 0, err
	}
	return r, nil
}
