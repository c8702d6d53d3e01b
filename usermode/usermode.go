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

// Package usermode models the Ring 0 <-> Ring 3 transition path.
//
// Entering Ring 3 works like the hardware sequence: save the kernel
// RSP/RBP continuation slots, build a five-word fake interrupt frame
// (rip, cs, rflags, rsp, ss with RPL=3 selectors and IF set) on the
// syscall kernel stack, and "iretq" into the program registered at rip.
// The program's int 0x80 traps back through the entry-stub model: the
// general-purpose registers are saved in a fixed block under the
// interrupt frame, the dispatcher arguments are marshaled into the
// kernel ABI registers (Microsoft x64: rcx, rdx, r8), and the result is
// written back into the saved rax slot before the return to Ring 3.
//
// SYS_EXIT is the one non-local jump in the kernel: it unwinds from the
// trap handler back to RunInUsermode's caller by restoring the saved
// RSP/RBP slots.
package usermode

import (
	"fmt"

	"github.com/tokuhirom/sabos-sub001/gdt"
	"github.com/tokuhirom/sabos-sub001/mem"
	"github.com/tokuhirom/sabos-sub001/sched"
)

// RFlagsIF is the interrupt-enable flag plus the always-one bit; the
// value iretq loads so user code runs with interrupts on.
const RFlagsIF uint64 = 0x202

// IntFrameWords is the size of the interrupt frame in 8-byte words:
// rip, cs, rflags, rsp, ss.
const IntFrameWords = 5

// GPRWords is the size of the entry stub's register save block: all 15
// general-purpose registers besides rsp.
const GPRWords = 15

// Indices into SavedGPRs, matching the entry stub's push order (rax
// pushed first, so it sits highest, directly under the interrupt frame).
const (
	GPRR15 = iota
	GPRR14
	GPRR13
	GPRR12
	GPRR11
	GPRR10
	GPRR9
	GPRR8
	GPRRBP
	GPRRDI
	GPRRSI
	GPRRDX
	GPRRCX
	GPRRBX
	GPRRAX
)

// DispatchFunc is the kernel-side syscall dispatcher the entry stub
// calls: dispatch(nr, a1, a2) with the result returned in rax.
type DispatchFunc func(nr, a1, a2 uint64) int64

// Program is a registered Ring-3 program body. It runs with user
// privileges: its only doors into the kernel are Env's syscall and its
// own user-half memory.
type Program func(env *Env)

// Fault is the page-fault analog: the user program did something the
// hardware would trap on. The task running the program is killed.
type Fault struct {
	Reason any
}

func (f *Fault) Error() string {
	return fmt.Sprintf("user fault: %v", f.Reason)
}

// ErrNoProgram is returned when no program is registered at the
// requested entry point.
var ErrNoProgram = fmt.Errorf("usermode: no program at entry point")

// userExit carries the SYS_EXIT status through the non-local unwind.
type userExit struct {
	status int64
}

// CPU is the per-CPU transition state. There is one; SMP is a non-goal.
type CPU struct {
	space    *mem.Space
	gdt      *gdt.Table
	dispatch DispatchFunc

	programs map[uint64]Program

	// CurrentTask lets the nesting guard tell tasks apart; wired by the
	// kernel, identity zero when absent.
	CurrentTask func() uint64

	// savedRSP/savedRBP are the setjmp-style continuation slots the
	// SYS_EXIT path restores. They hold the most recent entry.
	savedRSP uint64
	savedRBP uint64

	active map[uint64]bool
}

// New builds the transition path over an address space and an installed
// GDT. dispatch is the C8 hookup.
func New(space *mem.Space, g *gdt.Table, dispatch DispatchFunc) *CPU {
	return &CPU{
		space:       space,
		gdt:         g,
		dispatch:    dispatch,
		programs:    make(map[uint64]Program),
		CurrentTask: func() uint64 { return 0 },
		active:      make(map[uint64]bool),
	}
}

// Register installs a program at entry point rip. The ELF loader's job
// ends here: code is "loaded" by registration.
func (c *CPU) Register(rip uint64, prog Program) {
	c.programs[rip] = prog
}

// SavedRSP returns the kernel stack continuation slot.
func (c *CPU) SavedRSP() uint64 { return c.savedRSP }

// SavedRBP returns the kernel frame continuation slot.
func (c *CPU) SavedRBP() uint64 { return c.savedRBP }

// InUser reports whether the given task has a Ring-3 transition in
// progress.
func (c *CPU) InUser(task uint64) bool { return c.active[task] }

// RunInUsermode enters Ring 3 at rip with user stack rsp and returns
// when the program invokes SYS_EXIT, yielding its status. A fault in the
// program returns a *Fault; the caller is expected to kill the task.
func (c *CPU) RunInUsermode(rip, rsp uint64) (int64, error) {
	prog, ok := c.programs[rip]
	if !ok {
		return 0, ErrNoProgram
	}
	task := c.CurrentTask()
	if c.active[task] {
		panic("usermode: nested ring-3 entry")
	}

	// setjmp half: the exit path lands back here
	kstack := c.gdt.RSP0()
	c.savedRSP = kstack
	c.savedRBP = kstack

	if err := c.pushIntFrame(kstack, rip, rsp); err != nil {
		return 0, err
	}

	c.active[task] = true
	defer delete(c.active, task)
	return c.enter(prog, rsp)
}

// pushIntFrame builds the fake iretq frame on the syscall kernel stack:
// from the stack top down, ss | rsp | rflags | cs | rip.
func (c *CPU) pushIntFrame(kstack, rip, rsp uint64) error {
	base := kstack - IntFrameWords*8
	words := []uint64{rip, uint64(gdt.UserCode), RFlagsIF, rsp, uint64(gdt.UserData)}
	for i, w := range words {
		if err := c.space.WriteU64(base+uint64(i)*8, w); err != nil {
			return err
		}
	}
	return nil
}

// IntFrame reads back the interrupt frame under the current rsp0.
func (c *CPU) IntFrame() (rip, cs, rflags, rsp, ss uint64) {
	base := c.gdt.RSP0() - IntFrameWords*8
	read := func(i uint64) uint64 {
		v, _ := c.space.ReadU64(base + i*8)
		return v
	}
	return read(0), read(1), read(2), read(3), read(4)
}

// SavedGPRs reads the entry stub's register save block.
func (c *CPU) SavedGPRs() [GPRWords]uint64 {
	base := c.gdt.RSP0() - IntFrameWords*8 - GPRWords*8
	var regs [GPRWords]uint64
	for i := range regs {
		regs[i], _ = c.space.ReadU64(base + uint64(i)*8)
	}
	return regs
}

// enter runs the program and catches the two legal ways out: the
// SYS_EXIT unwind and a fault. The scheduler's own exit unwind passes
// through untouched.
func (c *CPU) enter(prog Program, rsp uint64) (status int64, err error) {
	defer func() {
		r := recover()
		switch v := r.(type) {
		case nil:
			// fell off the end without SYS_EXIT: the hardware would
			// have executed garbage and faulted
			err = &Fault{Reason: "returned without SYS_EXIT"}
		case userExit:
			// longjmp half: restore the kernel stack continuation
			status = v.status
		case *Fault:
			err = v
		default:
			if sched.IsTaskExit(r) {
				panic(r)
			}
			err = &Fault{Reason: r}
		}
	}()
	prog(&Env{cpu: c, stackTop: rsp})
	return 0, nil // the deferred recover turns this into the no-exit fault
}

// ExitTo is the SYS_EXIT back half: unwind out of the trap handler to
// RunInUsermode's caller. The dispatcher's process handlers call it; it
// does not return.
func (c *CPU) ExitTo(status int64) {
	panic(userExit{status: status})
}
