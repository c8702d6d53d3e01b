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

package kernel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokuhirom/sabos-sub001/pal"
	"github.com/tokuhirom/sabos-sub001/qemu"
	"github.com/tokuhirom/sabos-sub001/sysnum"
	"github.com/tokuhirom/sabos-sub001/syserr"
	"github.com/tokuhirom/sabos-sub001/usermode"
)

const (
	entryMain   = 0x40_0000
	entryWorker = 0x50_0000
)

func newKernel(t *testing.T) (*Kernel, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.ConsoleOut = out
	k, err := New(cfg)
	require.NoError(t, err)
	k.Boot()
	return k, out
}

// palProg builds a program body with a PAL client marshaling through
// the program's own user region.
func palProg(body func(c *pal.Client, env *usermode.Env)) usermode.Program {
	return func(env *usermode.Env) {
		scratch := env.StackTop() - userRegionSize
		body(pal.NewClient(env, scratch, 32*1024), env)
	}
}

// The minimal user program: write "hi\n", exit 0.
func TestMinimalUserProgram(t *testing.T) {
	k, out := newKernel(t)
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		c.Write([]byte("hi\n"))
		c.Exit(0)
	}))

	status, err := k.RunProgram(entryMain)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status)
	assert.Equal(t, "hi\n", out.String())
}

func TestExitStatusPropagates(t *testing.T) {
	k, _ := newKernel(t)
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		c.Exit(7)
	}))
	status, err := k.RunProgram(entryMain)
	require.NoError(t, err)
	assert.Equal(t, int64(7), status)
}

// A syscall with a pointer into the kernel half returns -EFAULT, the
// console stays clean, and the program keeps running.
func TestBadPointerSyscall(t *testing.T) {
	k, out := newKernel(t)
	kbase := k.Space.KernelBase()

	var badRet int64
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		badRet = env.Syscall(sysnum.SYS_WRITE, kbase-1, 2)
		c.Write([]byte("alive"))
		c.Exit(0)
	}))

	status, err := k.RunProgram(entryMain)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status)

	errno, ok := syserr.Decode(badRet)
	require.True(t, ok)
	assert.Equal(t, syserr.EFAULT, errno)
	assert.Equal(t, "alive", out.String(), "nothing written by the bad call")
}

// A program that faults in its own code is killed: RunProgram reports
// the fault and the kernel task continues.
func TestFaultingProgramIsKilled(t *testing.T) {
	k, out := newKernel(t)
	k.Register(entryMain, func(env *usermode.Env) {
		env.Poke(k.Space.KernelBase()+0x1000, []byte{0xcc})
	})

	_, err := k.RunProgram(entryMain)
	var fault *usermode.Fault
	require.ErrorAs(t, err, &fault)
	assert.Empty(t, out.String())

	// the kernel main task survived; another program still runs
	k.Register(entryWorker, palProg(func(c *pal.Client, env *usermode.Env) {
		c.Write([]byte("next"))
		c.Exit(0)
	}))
	status, err := k.RunProgram(entryWorker)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status)
	assert.Equal(t, "next", out.String())
}

func TestUserThreads(t *testing.T) {
	k, out := newKernel(t)

	k.Register(entryWorker, palProg(func(c *pal.Client, env *usermode.Env) {
		c.Write([]byte("t"))
		c.Exit(0)
	}))
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		tid := env.Syscall(sysnum.SYS_THREAD_CREATE, entryWorker, 0)
		if tid > 0 {
			env.Syscall(sysnum.SYS_THREAD_JOIN, uint64(tid), 0)
		}
		c.Write([]byte("m"))
		c.Exit(0)
	}))

	status, err := k.RunProgram(entryMain)
	require.NoError(t, err)
	assert.Equal(t, int64(0), status)
	assert.Equal(t, "tm", out.String(), "join orders the thread before main's write")
}

func TestFileSyscallsThroughPAL(t *testing.T) {
	k, _ := newKernel(t)

	var stat uint64
	var readback string
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		h, err := c.Open("/notes.txt")
		if err != nil {
			c.Exit(1)
		}
		if _, err := c.HandleWrite(h, []byte("persisted")); err != nil {
			c.Exit(2)
		}
		stat, _ = c.HandleStat(h)
		c.HandleSeek(h, 0, pal.SeekStart)
		buf := make([]byte, 16)
		n, _ := c.HandleRead(h, buf)
		readback = string(buf[:n])
		c.HandleClose(h)
		c.Exit(0)
	}))

	status, err := k.RunProgram(entryMain)
	require.NoError(t, err)
	require.Equal(t, int64(0), status)
	assert.Equal(t, uint64(9), stat)
	assert.Equal(t, "persisted", readback)
	assert.Equal(t, []string{"/notes.txt"}, k.FS.List())
}

func TestSleepWakesOnTimer(t *testing.T) {
	k, _ := newKernel(t)

	// a kernel task standing in for the timer interrupt source
	stop := false
	pumpID, err := k.Sched.Spawn("timer-pump", func() {
		for !stop {
			k.Sched.Tick()
			k.Sched.Checkpoint()
			k.Sched.YieldNow()
		}
	})
	require.NoError(t, err)

	var before, after uint64
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		before = c.ClockMonotonicMS()
		c.SleepMS(30)
		after = c.ClockMonotonicMS()
		c.Exit(0)
	}))

	status, err := k.RunProgram(entryMain)
	require.NoError(t, err)
	require.Equal(t, int64(0), status)
	assert.GreaterOrEqual(t, after-before, uint64(30))

	stop = true
	require.NoError(t, k.Sched.Join(pumpID))
}

func TestHaltRequestsDebugExit(t *testing.T) {
	var port uint16
	var value uint32
	cfg := DefaultConfig()
	cfg.ExitPort = qemu.PortFunc(func(p uint16, v uint32) { port = p; value = v })
	k, err := New(cfg)
	require.NoError(t, err)
	k.Boot()

	assert.Equal(t, int64(-1), k.HaltCode())
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		env.Syscall(sysnum.SYS_HALT, uint64(qemu.ExitFailure), 0)
		c.Exit(0)
	}))
	_, err = k.RunProgram(entryMain)
	require.NoError(t, err)

	assert.Equal(t, int64(1), k.HaltCode())
	assert.Equal(t, qemu.DebugExitPort, port)
	assert.Equal(t, qemu.ExitFailure, value)
	assert.Equal(t, 3, qemu.HostExitCode(value))
}

func TestSelftestSyscall(t *testing.T) {
	k, _ := newKernel(t)
	require.NoError(t, k.Selftest())

	var ret int64
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		ret = env.Syscall(sysnum.SYS_SELFTEST, 0, 0)
		c.Exit(0)
	}))
	_, err := k.RunProgram(entryMain)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ret)
}

func TestGetPIDAndRandomFromUser(t *testing.T) {
	k, _ := newKernel(t)

	var pid uint64
	rnd := make([]byte, 16)
	k.Register(entryMain, palProg(func(c *pal.Client, env *usermode.Env) {
		pid = c.GetPID()
		c.GetRandom(rnd)
		c.Exit(0)
	}))
	_, err := k.RunProgram(entryMain)
	require.NoError(t, err)
	assert.Equal(t, k.Sched.CurrentID(), pid)
	assert.NotEqual(t, make([]byte, 16), rnd)
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HeapSize = cfg.MemSize // no room for the syscall stack
	_, err := New(cfg)
	assert.Error(t, err)
}
