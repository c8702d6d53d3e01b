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

package usermode

import "fmt"

// Env is what a Ring-3 program sees: its own user-half memory and the
// int 0x80 trap. Nothing else.
type Env struct {
	cpu      *CPU
	stackTop uint64
}

// StackTop returns the top of the program's user stack.
func (e *Env) StackTop() uint64 { return e.stackTop }

// Syscall is int 0x80. The model walks the whole entry-stub sequence:
//
//  1. save all GPRs in a fixed block on the syscall kernel stack (the
//     TSS already switched rsp to rsp0),
//  2. marshal the user registers (rax=nr, rdi=a1, rsi=a2) into the
//     kernel ABI argument registers rcx/rdx/r8,
//  3. call the dispatcher,
//  4. write the result into the saved rax slot,
//  5. restore GPRs — rax now carries the result — and iretq.
func (e *Env) Syscall(nr, a1, a2 uint64) int64 {
	c := e.cpu
	base := c.gdt.RSP0() - IntFrameWords*8 - GPRWords*8

	var gprs [GPRWords]uint64
	gprs[GPRRAX] = nr
	gprs[GPRRDI] = a1
	gprs[GPRRSI] = a2
	// kernel ABI marshal
	gprs[GPRRCX] = nr
	gprs[GPRRDX] = a1
	gprs[GPRR8] = a2
	for i, v := range gprs {
		if err := c.space.WriteU64(base+uint64(i)*8, v); err != nil {
			panic(&Fault{Reason: fmt.Sprintf("syscall stack unmapped: %v", err)})
		}
	}

	ret := c.dispatch(nr, a1, a2)

	// result lands in the saved rax slot, so the restored rax carries it
	// back to Ring 3
	c.space.WriteU64(base+GPRRAX*8, uint64(ret))
	return ret
}

// Poke writes the program's own memory. Addresses outside the user half
// fault, which kills the task — exactly the page-fault contract for a
// Ring-3 access through the user/supervisor bit.
func (e *Env) Poke(addr uint64, p []byte) {
	if !e.cpu.space.InUser(addr, uint64(len(p))) {
		panic(&Fault{Reason: fmt.Sprintf("write to %#x outside user pages", addr)})
	}
	dst, err := e.cpu.space.Bytes(addr, uint64(len(p)))
	if err != nil {
		panic(&Fault{Reason: err})
	}
	copy(dst, p)
}

// Peek reads the program's own memory. Same fault contract as Poke.
func (e *Env) Peek(addr, n uint64) []byte {
	if !e.cpu.space.InUser(addr, n) {
		panic(&Fault{Reason: fmt.Sprintf("read of %#x outside user pages", addr)})
	}
	src, err := e.cpu.space.Bytes(addr, n)
	if err != nil {
		panic(&Fault{Reason: err})
	}
	out := make([]byte, n)
	copy(out, src)
	return out
}
