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

package main

import (
	"fmt"

	"github.com/tokuhirom/sabos-sub001/kernel"
	"github.com/tokuhirom/sabos-sub001/pal"
	"github.com/tokuhirom/sabos-sub001/sysnum"
	"github.com/tokuhirom/sabos-sub001/textutil"
	"github.com/tokuhirom/sabos-sub001/usermode"
)

// Demo program entry points, as the ELF loader would have placed them.
const (
	entryHello  = 0x40_0000
	entryFiles  = 0x41_0000
	entryWorker = 0x42_0000
)

// demoScratch is how much of the program's user region the PAL may use.
const demoScratch = 32 * 1024

func client(env *usermode.Env) *pal.Client {
	return pal.NewClient(env, env.StackTop()-64*1024, demoScratch)
}

// runDemos registers and runs the built-in user programs, the way the
// embedded ELF binaries run on the real kernel.
func runDemos(k *kernel.Kernel) error {
	k.Register(entryHello, progHello)
	k.Register(entryFiles, progFiles)
	k.Register(entryWorker, progWorker)

	for _, entry := range []uint64{entryHello, entryFiles} {
		status, err := k.RunProgram(entry)
		if err != nil {
			return err
		}
		if status != 0 {
			return fmt.Errorf("program %#x exited with status %d", entry, status)
		}
	}
	return nil
}

// progHello: the classic first program, plus a look at the clock.
func progHello(env *usermode.Env) {
	c := client(env)
	greeting, _ := textutil.ReplaceLiteral("Hello from NAME!\n", "NAME", "SABOS", false)
	c.Write([]byte(greeting))
	c.Printf("pid=%d uptime=%dms\n", c.GetPID(), c.ClockMonotonicMS())

	// a helper thread writes before we say goodbye
	tid := env.Syscall(sysnum.SYS_THREAD_CREATE, entryWorker, 0)
	if tid > 0 {
		env.Syscall(sysnum.SYS_THREAD_JOIN, uint64(tid), 0)
	}
	c.Write([]byte("bye\n"))
	c.Exit(0)
}

func progWorker(env *usermode.Env) {
	c := client(env)
	c.Write([]byte("worker reporting\n"))
	c.Exit(0)
}

// progFiles: exercise the handle syscalls end to end.
func progFiles(env *usermode.Env) {
	c := client(env)
	h, err := c.Open("/etc/motd")
	if err != nil {
		c.Exit(1)
	}
	if _, err := c.HandleWrite(h, []byte("welcome to sabos\n")); err != nil {
		c.Exit(1)
	}
	size, _ := c.HandleStat(h)
	c.HandleSeek(h, 0, pal.SeekStart)
	buf := make([]byte, size)
	n, _ := c.HandleRead(h, buf)
	c.Printf("motd (%d bytes): %s", size, buf[:n])
	c.HandleClose(h)
	listing, _ := textutil.ReplaceLiteral(c.ListDir(), "\n", " ", true)
	c.Printf("files: %s\n", listing)
	c.Exit(0)
}
