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

// Package spin provides the kernel's short-critical-section lock.
//
// The lock is safe to take from interrupt context and exposes Held so the
// preempt path can refuse to switch while the allocator or scheduler is
// inside a critical section.
package spin

import (
	"runtime"
	"sync/atomic"
)

// Lock is a test-and-set spinlock.
//
// Critical sections protected by it must be short and must not call into
// the scheduler.
type Lock struct {
	v atomic.Int32
}

// Lock acquires l, spinning until it is free.
func (l *Lock) Lock() {
	for !l.v.CompareAndSwap(0, 1) {
		runtime.Gosched()
	}
}

// TryLock acquires l if it is free and reports whether it did.
func (l *Lock) TryLock() bool {
	return l.v.CompareAndSwap(0, 1)
}

// Unlock releases l.
func (l *Lock) Unlock() {
	if !l.v.CompareAndSwap(1, 0) {
		panic("spin: unlock of unlocked lock")
	}
}

// Held reports whether l is currently locked.
func (l *Lock) Held() bool {
	return l.v.Load() != 0
}
