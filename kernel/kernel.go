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

// Package kernel wires the execution substrate together: address space,
// heap, scheduler, transition path, dispatcher, and the collaborator
// devices. It also owns the program table — the stand-in for the ELF
// loader at the Ring-3 trampoline boundary.
package kernel

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/tokuhirom/sabos-sub001/blockdev"
	"github.com/tokuhirom/sabos-sub001/console"
	"github.com/tokuhirom/sabos-sub001/fs"
	"github.com/tokuhirom/sabos-sub001/gdt"
	"github.com/tokuhirom/sabos-sub001/heap"
	"github.com/tokuhirom/sabos-sub001/ipc"
	"github.com/tokuhirom/sabos-sub001/mem"
	"github.com/tokuhirom/sabos-sub001/qemu"
	"github.com/tokuhirom/sabos-sub001/sched"
	"github.com/tokuhirom/sabos-sub001/syscalls"
	"github.com/tokuhirom/sabos-sub001/usermode"
)

// syscallStackSize is the dedicated kernel stack the TSS rsp0 points at.
const syscallStackSize = 4 * 4096

// userRegionSize is the slice of user memory each loaded program gets:
// stack on top, PAL scratch below it.
const userRegionSize = 64 * 1024

// Config sizes the machine.
type Config struct {
	// MemSize is the identity-mapped address space, split at KernelBase.
	MemSize    uint64
	KernelBase uint64
	// HeapSize is the kernel heap region carved from the kernel half.
	HeapSize uint64
	// TimerHz is the timer interrupt rate.
	TimerHz int
	// DiskSectors sizes the RAM-backed block device.
	DiskSectors uint64
	// ConsoleOut receives SYS_WRITE output; nil discards.
	ConsoleOut io.Writer
	// Logger is the kernel's own diagnostic log; nil silences it.
	Logger *log.Logger
	// ExitPort receives debug-exit writes; nil records the code only.
	ExitPort qemu.PortWriter
}

// DefaultConfig is a 16 MiB machine with an even user/kernel split.
func DefaultConfig() Config {
	return Config{
		MemSize:     16 << 20,
		KernelBase:  8 << 20,
		HeapSize:    6 << 20,
		TimerHz:     sched.DefaultHz,
		DiskSectors: 2048,
	}
}

// Kernel is the booted machine.
type Kernel struct {
	Space   *mem.Space
	Heap    *heap.Heap
	Sched   *sched.Scheduler
	GDT     *gdt.Table
	CPU     *usermode.CPU
	Sys     *syscalls.Services
	Console *console.Console
	FS      *fs.FS
	Disk    *blockdev.MemDisk
	Ports   *ipc.Registry

	log      *log.Logger
	haltCode int64 // last debug-exit code, -1 before any

	nextUserTop uint64
}

// New builds and wires the machine. Call Boot from the goroutine that
// will be the kernel's main task before running anything.
func New(cfg Config) (*Kernel, error) {
	if cfg.MemSize == 0 {
		cfg = DefaultConfig()
	}
	if cfg.TimerHz <= 0 {
		cfg.TimerHz = sched.DefaultHz
	}
	if cfg.KernelBase+cfg.HeapSize+syscallStackSize > cfg.MemSize {
		return nil, fmt.Errorf("kernel: heap %#x + syscall stack overflow the kernel half", cfg.HeapSize)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	space, err := mem.NewSpace(cfg.MemSize, cfg.KernelBase)
	if err != nil {
		return nil, err
	}
	heapRegion, err := space.Bytes(cfg.KernelBase, cfg.HeapSize)
	if err != nil {
		return nil, err
	}
	h, err := heap.New(heapRegion)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		Space:       space,
		Heap:        h,
		Sched:       sched.New(h, cfg.TimerHz),
		GDT:         gdt.New(cfg.MemSize), // rsp0: top of the space
		Console:     console.New(cfg.ConsoleOut),
		FS:          fs.New(),
		Disk:        blockdev.NewMemDisk(cfg.DiskSectors),
		log:         logger,
		haltCode:    -1,
		nextUserTop: cfg.KernelBase,
	}
	k.Ports = ipc.NewRegistry(k.Sched)

	k.Sys = syscalls.New(&syscalls.Services{
		Sched:   k.Sched,
		Space:   space,
		Console: k.Console,
		FS:      k.FS,
		Disk:    k.Disk,
		Ports:   k.Ports,
		Exit:    func(status int64) { k.CPU.ExitTo(status) },
		Halt: func(code uint32) {
			k.haltCode = int64(code)
			k.log.Info("debug exit requested", "code", code, "host", qemu.HostExitCode(code))
			if cfg.ExitPort != nil {
				qemu.DebugExit(cfg.ExitPort, code)
			}
		},
		SpawnUser: func(pc, rsp uint64) (uint64, error) { return k.SpawnUserTask(pc, rsp) },
		Selftest:  func() error { return k.Selftest() },
	})

	k.CPU = usermode.New(space, k.GDT, k.Sys.Dispatch)
	k.CPU.CurrentTask = func() uint64 { return k.Sched.CurrentID() }
	return k, nil
}

// Boot adopts the calling goroutine as the kernel main task and logs the
// machine shape.
func (k *Kernel) Boot() {
	k.Sched.Bootstrap("kernel-main")
	k.log.Info("sabos core up",
		"mem", k.Space.Size(),
		"kernel_base", fmt.Sprintf("%#x", k.Space.KernelBase()),
		"heap_avail", k.Heap.Available(),
		"timer_hz", k.Sched.Hz(),
		"rsp0", fmt.Sprintf("%#x", k.GDT.RSP0()),
	)
}

// Register installs a user program at entry point rip.
func (k *Kernel) Register(rip uint64, prog usermode.Program) {
	k.CPU.Register(rip, prog)
}

// allocUserRegion hands out fixed user-memory regions below the kernel
// base, top first. Returns the stack top.
func (k *Kernel) allocUserRegion() (uint64, error) {
	if k.nextUserTop < userRegionSize {
		return 0, fmt.Errorf("kernel: user memory exhausted")
	}
	top := k.nextUserTop
	k.nextUserTop -= userRegionSize
	return top, nil
}

// RunProgram enters Ring 3 at rip with a fresh user stack and returns
// the program's exit status. A faulting program yields the fault error;
// the calling task survives.
func (k *Kernel) RunProgram(rip uint64) (int64, error) {
	rsp, err := k.allocUserRegion()
	if err != nil {
		return 0, err
	}
	status, err := k.CPU.RunInUsermode(rip, rsp)
	if err != nil {
		k.log.Error("user program died", "rip", fmt.Sprintf("%#x", rip), "err", err)
		return 0, err
	}
	k.log.Info("user program exited", "rip", fmt.Sprintf("%#x", rip), "status", status)
	return status, nil
}

// SpawnUserTask backs SYS_THREAD_CREATE: a new kernel task whose entry
// runs the user program at pc. rsp of zero gets a fresh region. A fault
// kills only that task.
func (k *Kernel) SpawnUserTask(pc, rsp uint64) (uint64, error) {
	if rsp == 0 {
		var err error
		rsp, err = k.allocUserRegion()
		if err != nil {
			return 0, err
		}
	}
	return k.Sched.SpawnUser("user", pc, func() {
		if _, err := k.CPU.RunInUsermode(pc, rsp); err != nil {
			k.log.Error("user thread died", "pc", fmt.Sprintf("%#x", pc), "err", err)
		}
	})
}

// HaltCode returns the last debug-exit code, or -1.
func (k *Kernel) HaltCode() int64 { return k.haltCode }
