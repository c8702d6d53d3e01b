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

// Package blockdev defines the block-device abstraction shared between
// the kernel's block syscalls and user-space filesystem daemons. 512-byte
// sectors throughout.
package blockdev

import (
	"github.com/tokuhirom/sabos-sub001/internal/spin"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// SectorSize is the only sector size the interface speaks.
const SectorSize = 512

// BlockDevice reads and writes whole sectors. Implementations own their
// registers and locking; they must not call into the scheduler while
// holding their lock.
type BlockDevice interface {
	ReadSector(sector uint64, buf []byte) error
	WriteSector(sector uint64, buf []byte) error
	Sectors() uint64
}

// MemDisk is a RAM-backed block device, the driver stand-in the model
// boots with.
type MemDisk struct {
	mu   spin.Lock
	data []byte
}

// NewMemDisk builds a disk of n sectors.
func NewMemDisk(n uint64) *MemDisk {
	return &MemDisk{data: make([]byte, n*SectorSize)}
}

// Sectors returns the disk size in sectors.
func (d *MemDisk) Sectors() uint64 {
	return uint64(len(d.data)) / SectorSize
}

// ReadSector copies one sector into buf, which must be exactly
// SectorSize long.
func (d *MemDisk) ReadSector(sector uint64, buf []byte) error {
	if len(buf) != SectorSize {
		return syserr.EINVAL
	}
	if sector >= d.Sectors() {
		return syserr.EINVAL
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(buf, d.data[sector*SectorSize:])
	return nil
}

// WriteSector copies buf over one sector.
func (d *MemDisk) WriteSector(sector uint64, buf []byte) error {
	if len(buf) != SectorSize {
		return syserr.EINVAL
	}
	if sector >= d.Sectors() {
		return syserr.EINVAL
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.data[sector*SectorSize:], buf)
	return nil
}
