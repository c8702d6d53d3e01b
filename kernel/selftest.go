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
	"fmt"

	"github.com/tokuhirom/sabos-sub001/heap"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// Selftest runs the kernel's built-in checks: the SYS_SELFTEST backend
// and the harness behind `sabos selftest`. It exercises the substrate
// from inside the running machine, where the property tests cannot go.
func (k *Kernel) Selftest() error {
	if err := k.selftestHeap(); err != nil {
		return fmt.Errorf("heap: %w", err)
	}
	if err := k.selftestErrno(); err != nil {
		return fmt.Errorf("errno: %w", err)
	}
	if err := k.selftestSched(); err != nil {
		return fmt.Errorf("sched: %w", err)
	}
	k.log.Info("selftest passed")
	return nil
}

func (k *Kernel) selftestHeap() error {
	p := k.Heap.Alloc(40, 8)
	if p == nil {
		return syserr.ENOMEM
	}
	b := heap.AsBytes(p, 40)
	for i := range b {
		b[i] = byte(i)
	}
	for i := range b {
		if b[i] != byte(i) {
			return fmt.Errorf("byte %d corrupted", i)
		}
	}
	k.Heap.Dealloc(p, 40, 8)

	// LIFO reuse of the slot just freed
	q := k.Heap.Alloc(40, 8)
	defer k.Heap.Dealloc(q, 40, 8)
	if q != p {
		return fmt.Errorf("free slot not reused LIFO")
	}
	return nil
}

func (k *Kernel) selftestErrno() error {
	for _, e := range []syserr.Errno{syserr.EFAULT, syserr.ENOSYS, syserr.ETIMEDOUT} {
		got, ok := syserr.Decode(e.Encode())
		if !ok || got != e {
			return fmt.Errorf("round trip broke for %v", e)
		}
	}
	return nil
}

func (k *Kernel) selftestSched() error {
	ran := false
	id, err := k.Sched.Spawn("selftest-child", func() { ran = true })
	if err != nil {
		return err
	}
	if err := k.Sched.Join(id); err != nil {
		return err
	}
	if !ran {
		return fmt.Errorf("joined child never ran")
	}
	return nil
}
