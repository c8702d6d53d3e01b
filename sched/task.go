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

package sched

import (
	"encoding/binary"
	"unsafe"
)

// TaskStackSize is the kernel stack owned by every spawned task. Kernel
// tasks do not need much, but formatted printing is stack hungry.
const TaskStackSize = 4 * 4096

// Synthetic program counters stored as the return address of a saved
// context frame. The model carries no kernel text, so these stand for "the
// first-run thunk" and "the resume point inside YieldNow".
const (
	EntryThunkPC  uint64 = 0x0010_0000
	YieldResumePC uint64 = 0x0010_0040
)

// ContextFrameWords is the size of a saved context frame in 8-byte words:
// the eight callee-saved registers of the Microsoft x64 ABI plus the
// return address.
const ContextFrameWords = 9

// State is a task's lifecycle state.
type State int32

const (
	// Runnable tasks sit in the ready queue waiting for the CPU.
	Runnable State = iota
	// Running is the single task owning the CPU.
	Running
	// Blocked tasks wait for a wake (join, IPC, futex, deadline).
	Blocked
	// Terminated tasks have exited and wait for their joiner.
	Terminated
)

func (s State) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Blocked:
		return "blocked"
	case Terminated:
		return "terminated"
	}
	return "invalid"
}

// Task is one kernel task. All fields except id and name are owned by the
// scheduler and mutated only under its lock.
type Task struct {
	id   uint64
	name string

	state State

	// stack is the 16 KiB kernel stack, allocated from the heap's large
	// arena. nil only for the bootstrap task, which runs on the stack the
	// firmware handed us.
	stack    []byte
	stackPtr unsafe.Pointer

	// savedSP points at the saved context frame in stack. Stale while the
	// task is Running (the live value is in rsp).
	savedSP uintptr

	// regs is the modeled callee-saved register file, in push order:
	// rbx, rbp, rdi, rsi, r12, r13, r14, r15.
	regs [8]uint64

	// userPC is the Ring-3 entry point for tasks backing a user program,
	// 0 for kernel-only tasks.
	userPC uint64

	entry func()
	gate  chan struct{}

	joiners     []*Task
	observers   int
	wakePending bool
	deadline    uint64
	timedOut    bool
}

// ID returns the task's monotonic id.
func (t *Task) ID() uint64 { return t.id }

// Name returns the task's human-readable name.
func (t *Task) Name() string { return t.name }

// UserPC returns the Ring-3 entry point, or 0 for kernel-only tasks.
func (t *Task) UserPC() uint64 { return t.userPC }

// SavedSP returns the saved stack pointer. Only meaningful while the task
// is not Running.
func (t *Task) SavedSP() uintptr { return t.savedSP }

// SavedFrame decodes the context frame at SavedSP: eight callee-saved
// registers in push order followed by the return address.
func (t *Task) SavedFrame() (regs [8]uint64, ret uint64) {
	frame := unsafe.Slice((*byte)(unsafe.Pointer(t.savedSP)), ContextFrameWords*8)
	// pushes happen rbx first, so rbx sits at the highest address
	for i := 0; i < 8; i++ {
		regs[7-i] = binary.LittleEndian.Uint64(frame[i*8:])
	}
	ret = binary.LittleEndian.Uint64(frame[8*8:])
	return regs, ret
}

// writeFrame materializes the context frame the switch routine would have
// pushed: callee-saved registers (rbx pushed first, so it lands highest)
// and the return address above them.
func (t *Task) writeFrame(ret uint64) {
	if t.stack == nil {
		return
	}
	top := len(t.stack) - ContextFrameWords*8
	frame := t.stack[top:]
	for i := 0; i < 8; i++ {
		binary.LittleEndian.PutUint64(frame[i*8:], t.regs[7-i])
	}
	binary.LittleEndian.PutUint64(frame[8*8:], ret)
	t.savedSP = uintptr(unsafe.Pointer(&frame[0]))
}
