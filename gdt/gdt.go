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

// Package gdt models the Global Descriptor Table and the 64-bit TSS.
//
// The layout is fixed for the machine's whole lifetime: null, kernel
// code, kernel data, user code (DPL=3), user data (DPL=3), then the
// 16-byte TSS descriptor. After setup the only field ever written is the
// TSS rsp0 slot, which the CPU loads on every Ring 3 -> Ring 0 interrupt
// transition.
package gdt

// Segment selectors. The low two bits are the RPL: user selectors carry
// RPL=3 so that iretq lands in Ring 3.
const (
	KernelCode uint16 = 0x08
	KernelData uint16 = 0x10
	UserCode   uint16 = 0x18 | 3
	UserData   uint16 = 0x20 | 3
	TSSSel     uint16 = 0x28
)

// Descriptor access bits.
const (
	accessPresent  = 1 << 7
	accessDPLShift = 5
	accessCodeData = 1 << 4 // S bit: code/data, not system
	accessExec     = 1 << 3
	accessRW       = 1 << 1
	accessAccessed = 1 << 0

	accessTSS64 = 0x9 // available 64-bit TSS, system descriptor

	flagLong = 1 << 5 // L: 64-bit code segment
	flagGran = 1 << 7 // G: 4 KiB granularity
)

// codeSegment encodes a 64-bit code descriptor at the given privilege
// level. Base and limit are ignored in long mode but encoded flat for the
// benefit of inspection tools.
func codeSegment(dpl int) uint64 {
	access := uint64(accessPresent | accessCodeData | accessExec | accessRW | accessAccessed)
	access |= uint64(dpl) << accessDPLShift
	return encodeSegment(0, 0xfffff, access, flagLong|flagGran)
}

// dataSegment encodes a data descriptor at the given privilege level.
func dataSegment(dpl int) uint64 {
	access := uint64(accessPresent | accessCodeData | accessRW | accessAccessed)
	access |= uint64(dpl) << accessDPLShift
	return encodeSegment(0, 0xfffff, access, flagGran)
}

// encodeSegment packs the legacy scattered base/limit/access layout.
func encodeSegment(base uint32, limit uint32, access uint64, flags uint64) uint64 {
	var d uint64
	d |= uint64(limit & 0xffff)
	d |= uint64(base&0xffffff) << 16
	d |= access << 40
	d |= uint64(limit>>16&0xf) << 48
	d |= flags << 48
	d |= uint64(base>>24) << 56
	return d
}

// TSS is the 64-bit task state segment. RSP0 is the kernel stack the CPU
// switches to when an interrupt arrives in Ring 3.
type TSS struct {
	RSP0 uint64
	RSP1 uint64
	RSP2 uint64
	IST  [7]uint64
	// I/O permission bitmap base; set past the segment limit to deny all
	// user port access.
	IOMapBase uint16
}

// Table is the installed GDT plus its TSS. Built once by New; never
// mutated afterwards except through SetRSP0.
type Table struct {
	Entries [7]uint64
	TSS     TSS
}

// New builds the fixed five-segment layout with the TSS rsp0 pointing at
// the top of the syscall kernel stack.
func New(rsp0 uint64) *Table {
	t := &Table{
		TSS: TSS{RSP0: rsp0, IOMapBase: 0xffff},
	}
	t.Entries[0] = 0 // null
	t.Entries[1] = codeSegment(0)
	t.Entries[2] = dataSegment(0)
	t.Entries[3] = codeSegment(3)
	t.Entries[4] = dataSegment(3)
	t.Entries[5], t.Entries[6] = tssDescriptor(&t.TSS)
	return t
}

// SetRSP0 points the TSS at a new syscall kernel stack top. This is the
// only runtime mutation the table supports.
func (t *Table) SetRSP0(rsp0 uint64) { t.TSS.RSP0 = rsp0 }

// RSP0 returns the stack the CPU will load when Ring 3 traps in.
func (t *Table) RSP0() uint64 { return t.TSS.RSP0 }

// tssDescriptor encodes the 16-byte system descriptor for the TSS. The
// model uses a synthetic base; real hardware would take the TSS's linear
// address.
func tssDescriptor(tss *TSS) (lo, hi uint64) {
	base := tssBase
	limit := uint32(tssLimit)
	lo = encodeSegment(uint32(base), limit, accessPresent|accessTSS64, 0)
	hi = base >> 32
	return lo, hi
}

const (
	// tssBase is the synthetic linear address the descriptor points at.
	tssBase uint64 = 0x0000_0000_000b_8000
	// tssLimit is sizeof(TSS with iomap base) - 1.
	tssLimit = 0x67
)

// SelectorRPL extracts the requested privilege level of a selector.
func SelectorRPL(sel uint16) int { return int(sel & 3) }

// DescriptorDPL extracts the descriptor privilege level of an encoded
// segment.
func DescriptorDPL(d uint64) int { return int(d >> (40 + accessDPLShift) & 3) }
