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

// Package sysnum is the single authoritative list of SABOS syscall
// numbers, shared by the kernel dispatcher and the user-side PAL. Numbers
// are stable ABI; add, never renumber.
//
// The id space is partitioned by subsystem:
//
//	0-9     console I/O       50-59   system control
//	10-11   test/debug        60      exit
//	12-19   path-based FS     70-79   file handles
//	20-29   system info       80-89   block device
//	30-39   process mgmt      90-99   IPC
//	40-49   network           100-109 sound
//	                          110-119 thread
//	                          120-129 futex
//	                          130-139 time
package sysnum

// Console I/O (0-9)
const (
	SYS_READ         = 0 // read(buf_ptr, len) — read buffered console input
	SYS_WRITE        = 1 // write(buf_ptr, len) — write to the kernel console
	SYS_CLEAR_SCREEN = 2 // clear_screen()
)

// Test/debug (10-11)
const (
	SYS_SELFTEST = 10 // selftest() — run the kernel's internal checks
)

// Path-based filesystem (12-19)
const (
	SYS_LIST_DIR = 12 // list_dir(buf_ptr, len) — directory listing text
)

// System info (20-29)
const (
	SYS_CLOCK_MONOTONIC_MS = 26 // clock_monotonic_ms() — ms since boot
	SYS_GETRANDOM          = 27 // getrandom(buf_ptr, len)
)

// Process management (30-39)
const (
	SYS_GETPID = 35 // getpid()
)

// System control (50-59)
const (
	SYS_HALT = 50 // halt(code) — debug-exit the machine
)

// Exit.
const SYS_EXIT = 60 // exit(status) — terminate the user program

// File handles (70-79). Operations that need more than two registers take
// a pointer to a parameter block; see the iov/stat layouts in the
// dispatcher.
const (
	SYS_OPEN         = 70 // open(path_ptr, path_len) -> handle
	SYS_HANDLE_READ  = 71 // handle_read(handle, iov_ptr) -> n
	SYS_HANDLE_WRITE = 72 // handle_write(handle, iov_ptr) -> n
	SYS_HANDLE_CLOSE = 73 // handle_close(handle)
	SYS_HANDLE_STAT  = 77 // handle_stat(handle, stat_ptr)
	SYS_HANDLE_SEEK  = 78 // handle_seek(handle, seek_ptr) -> pos
)

// Block device (80-89)
const (
	SYS_BLOCK_READ  = 80 // block_read(sector, buf_ptr) — one 512-byte sector
	SYS_BLOCK_WRITE = 81 // block_write(sector, buf_ptr)
)

// IPC ports (90-99)
const (
	SYS_IPC_CREATE = 90 // ipc_create() -> port
	SYS_IPC_SEND   = 91 // ipc_send(port, iov_ptr)
	SYS_IPC_RECV   = 92 // ipc_recv(port, recv_ptr) -> n
	SYS_IPC_CLOSE  = 93 // ipc_close(port)
)

// Threads (110-119)
const (
	SYS_THREAD_CREATE = 110 // thread_create(entry_pc, stack_top) -> tid
	SYS_THREAD_EXIT   = 111 // thread_exit(status)
	SYS_THREAD_JOIN   = 112 // thread_join(tid)
)

// Futex (120-129)
const (
	SYS_FUTEX_WAIT = 120 // futex_wait(addr, expected)
	SYS_FUTEX_WAKE = 121 // futex_wake(addr, count) -> woken
)

// Time (130-139)
const (
	SYS_SLEEP_MS = 131 // sleep_ms(ms)
)
