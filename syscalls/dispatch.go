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

// Package syscalls is the system-call dispatch layer: the numeric-id
// table connecting Ring 3 to kernel services.
//
// Pointer arguments are never trusted: every one goes through the
// userptr validator before a handler touches memory. Errors funnel out
// as negated errnos; unknown ids are ENOSYS. Buffers cross the boundary
// as (pointer, length) pairs — there are no NUL-terminated strings here.
package syscalls

import (
	"github.com/tokuhirom/sabos-sub001/blockdev"
	"github.com/tokuhirom/sabos-sub001/console"
	"github.com/tokuhirom/sabos-sub001/fs"
	"github.com/tokuhirom/sabos-sub001/handle"
	"github.com/tokuhirom/sabos-sub001/internal/spin"
	"github.com/tokuhirom/sabos-sub001/ipc"
	"github.com/tokuhirom/sabos-sub001/mem"
	"github.com/tokuhirom/sabos-sub001/sched"
	"github.com/tokuhirom/sabos-sub001/sysnum"
	"github.com/tokuhirom/sabos-sub001/syserr"
	"github.com/tokuhirom/sabos-sub001/userptr"
)

// iovec is the parameter block for handle and IPC data operations:
// operations needing more than the two register arguments point at one
// of these in user memory.
type iovec struct {
	Addr uint64
	Len  uint64
}

// recvArgs parameterizes SYS_IPC_RECV.
type recvArgs struct {
	Addr       uint64
	Cap        uint64
	DeadlineMS uint64
}

// seekArgs parameterizes SYS_HANDLE_SEEK.
type seekArgs struct {
	Whence uint64
	Off    int64
}

// statBuf is what SYS_HANDLE_STAT writes back.
type statBuf struct {
	Size     uint64
	Reserved uint64
}

// Services bundles everything the handlers reach: the execution
// substrate plus the collaborator devices. The Exit, Halt and SpawnUser
// hooks keep this package free of upward dependencies on the trampoline
// and the kernel wiring.
type Services struct {
	Sched   *sched.Scheduler
	Space   *mem.Space
	Console *console.Console
	FS      *fs.FS
	Disk    blockdev.BlockDevice
	Ports   *ipc.Registry

	// Exit unwinds the current Ring-3 transition; it must not return.
	Exit func(status int64)
	// Halt requests machine shutdown with the given debug-exit code.
	Halt func(code uint32)
	// SpawnUser starts a task running the user program at pc with the
	// given user stack.
	SpawnUser func(pc, rsp uint64) (uint64, error)
	// Selftest runs the kernel's internal checks, if wired.
	Selftest func() error

	mu      spin.Lock
	tables  map[uint64]*handle.Table
	futexes map[uint64][]uint64
}

// New finishes Services setup and hooks task-exit cleanup for the
// per-task handle tables.
func New(s *Services) *Services {
	s.tables = make(map[uint64]*handle.Table)
	s.futexes = make(map[uint64][]uint64)
	s.Sched.OnTaskExit(func(id uint64) {
		s.mu.Lock()
		t := s.tables[id]
		delete(s.tables, id)
		s.mu.Unlock()
		if t != nil {
			t.CloseAll()
		}
	})
	return s
}

// Dispatch is the kernel half of int 0x80: route by number, validate,
// run, encode. Every return path is a yield-safe point, so pending timer
// ticks are delivered before going back to Ring 3.
func (s *Services) Dispatch(nr, a1, a2 uint64) int64 {
	ret := s.route(nr, a1, a2)
	s.Sched.Checkpoint()
	return ret
}

func (s *Services) route(nr, a1, a2 uint64) int64 {
	switch {
	case nr <= 9:
		return s.consoleCall(nr, a1, a2)
	case nr <= 11:
		return s.debugCall(nr, a1, a2)
	case nr <= 19:
		return s.fsCall(nr, a1, a2)
	case nr <= 29:
		return s.sysinfoCall(nr, a1, a2)
	case nr <= 39:
		return s.processCall(nr, a1, a2)
	case nr <= 49:
		return syserr.ENOSYS.Encode() // network lives out of tree
	case nr <= 59:
		return s.controlCall(nr, a1, a2)
	case nr == sysnum.SYS_EXIT:
		return s.exitCall(a1)
	case nr >= 70 && nr <= 79:
		return s.handleCall(nr, a1, a2)
	case nr >= 80 && nr <= 89:
		return s.blockCall(nr, a1, a2)
	case nr >= 90 && nr <= 99:
		return s.ipcCall(nr, a1, a2)
	case nr >= 110 && nr <= 119:
		return s.threadCall(nr, a1, a2)
	case nr >= 120 && nr <= 129:
		return s.futexCall(nr, a1, a2)
	case nr >= 130 && nr <= 139:
		return s.timeCall(nr, a1, a2)
	}
	return syserr.ENOSYS.Encode()
}

// table returns the current task's handle table, creating it on first
// use. Tables die with their task.
func (s *Services) table() *handle.Table {
	id := s.Sched.CurrentID()
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[id]
	if t == nil {
		t = handle.NewTable()
		s.tables[id] = t
	}
	return t
}

// readIovec validates and loads an iovec parameter block.
func (s *Services) readIovec(ptr uint64) (iovec, syserr.Errno) {
	v, errno := userSlice[iovec](s.Space, ptr, 1)
	if errno != syserr.OK {
		return iovec{}, errno
	}
	return v[0], syserr.OK
}

// userSlice and userBytes keep the validator call sites short.
func userSlice[T any](sp *mem.Space, addr, count uint64) ([]T, syserr.Errno) {
	return userptr.Slice[T](sp, addr, count)
}

func userBytes(sp *mem.Space, addr, length uint64) ([]byte, syserr.Errno) {
	return userptr.Bytes(sp, addr, length)
}
