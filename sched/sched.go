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

// Package sched is the cooperative kernel task scheduler.
//
// Tasks advance until they call YieldNow, Block, Join or Exit, or until a
// timer tick is delivered at a yield-safe point. The ready queue is strict
// FIFO; there are no priorities and no SMP.
//
// Each task executes on its own goroutine, gated so that exactly one runs
// at a time: that goroutine hand-off is the model's context switch. The
// architectural side of the switch is still maintained — every task owns a
// 16 KiB kernel stack from the heap's large arena, and while a task is not
// Running its saved stack pointer addresses a frame holding exactly the
// callee-saved register set (Microsoft x64: rbx, rbp, rdi, rsi, r12-r15)
// and a return address that is either the first-run thunk or the resume
// point inside YieldNow.
package sched

import (
	"unsafe"

	"github.com/tokuhirom/sabos-sub001/heap"
	"github.com/tokuhirom/sabos-sub001/internal/spin"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// Scheduler is the single-CPU scheduler. One lock protects the ready
// queue and the task table; no path may take it together with the
// allocator lock.
type Scheduler struct {
	mu   spin.Lock
	heap *heap.Heap
	hz   uint64

	nextID  uint64
	tasks   map[uint64]*Task
	ready   readyQueue
	current *Task

	timer     timerState
	exitHooks []func(id uint64)
}

// taskExited is the panic payload Exit uses to unwind a task's entry
// function back to its dispatch frame.
type taskExited struct{}

// IsTaskExit reports whether a recovered panic value is the scheduler's
// exit unwind. Interposed recover sites (the Ring-3 fault handler) must
// re-panic it.
func IsTaskExit(r any) bool {
	_, ok := r.(taskExited)
	return ok
}

// New builds a scheduler drawing task stacks from h, with the timer
// interrupt at hz Hz.
func New(h *heap.Heap, hz int) *Scheduler {
	if hz <= 0 {
		hz = DefaultHz
	}
	return &Scheduler{
		heap:  h,
		hz:    uint64(hz),
		tasks: make(map[uint64]*Task),
	}
}

// OnTaskExit registers a hook called with the id of every exiting task,
// while that task is still current. Register during boot, before tasks
// run.
func (s *Scheduler) OnTaskExit(fn func(id uint64)) {
	s.exitHooks = append(s.exitHooks, fn)
}

// Bootstrap adopts the calling goroutine as the initial Running task. It
// runs on the boot stack, so it owns no heap stack and must never Exit.
func (s *Scheduler) Bootstrap(name string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		panic("sched: bootstrap called twice")
	}
	s.nextID++
	t := &Task{
		id:    s.nextID,
		name:  name,
		state: Running,
		gate:  make(chan struct{}, 1),
	}
	s.tasks[t.id] = t
	s.current = t
	return t
}

// Spawn creates a task that will run entry and then exit. The new task is
// enqueued at the tail of the ready queue. Spawning fails only when the
// stack allocation fails.
func (s *Scheduler) Spawn(name string, entry func()) (uint64, error) {
	return s.spawn(name, entry, 0)
}

// SpawnUser is Spawn for a task backing the Ring-3 program at userPC.
func (s *Scheduler) SpawnUser(name string, userPC uint64, entry func()) (uint64, error) {
	return s.spawn(name, entry, userPC)
}

func (s *Scheduler) spawn(name string, entry func(), userPC uint64) (uint64, error) {
	stk := s.heap.Alloc(TaskStackSize, 16)
	if stk == nil {
		return 0, syserr.ENOMEM
	}
	t := &Task{
		name:     name,
		stack:    heap.AsBytes(stk, TaskStackSize),
		stackPtr: stk,
		userPC:   userPC,
		entry:    entry,
		gate:     make(chan struct{}, 1),
	}
	// initial frame: zeroed callee-saved registers, return address on the
	// first-run thunk
	t.writeFrame(EntryThunkPC)

	s.mu.Lock()
	s.nextID++
	t.id = s.nextID
	t.state = Runnable
	s.tasks[t.id] = t
	s.ready.push(t)
	s.mu.Unlock()

	go s.run(t)
	return t.id, nil
}

// run is the first-run thunk: wait for first dispatch, call entry, exit.
func (s *Scheduler) run(t *Task) {
	<-t.gate
	func() {
		defer func() {
			if r := recover(); r != nil && !IsTaskExit(r) {
				// kernel panic: unrecoverable, propagate and halt
				panic(r)
			}
		}()
		t.entry()
	}()
	s.finishCurrent()
}

// YieldNow gives up the CPU: the current task goes to the tail of the
// ready queue and the head runs next. With an empty queue it returns
// immediately.
func (s *Scheduler) YieldNow() {
	s.yield()
}

func (s *Scheduler) yield() bool {
	s.mu.Lock()
	cur := s.current
	next := s.ready.pop()
	if next == nil {
		s.mu.Unlock()
		return false
	}
	cur.state = Runnable
	s.ready.push(cur)
	next.state = Running
	s.current = next
	cur.writeFrame(YieldResumePC)
	s.mu.Unlock()
	s.switchTo(cur, next)
	return true
}

// switchTo is the context switch: store a token for the incoming task's
// gate, park on our own. The outgoing frame was written by the caller
// under the lock.
func (s *Scheduler) switchTo(cur, next *Task) {
	next.gate <- struct{}{}
	<-cur.gate
}

// Exit terminates the current task. It does not return.
func (s *Scheduler) Exit() {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur.stack == nil {
		panic("sched: bootstrap task cannot exit")
	}
	panic(taskExited{})
}

// finishCurrent runs the Terminated transition: wake joiners, switch away
// without saving the outgoing context. The stack stays live until a
// joiner observes the termination.
func (s *Scheduler) finishCurrent() {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	for _, hook := range s.exitHooks {
		hook(cur.id)
	}

	s.mu.Lock()
	cur.state = Terminated
	cur.observers = len(cur.joiners)
	for _, j := range cur.joiners {
		s.wakeLocked(j)
	}
	cur.joiners = nil
	next := s.ready.pop()
	if next == nil {
		s.mu.Unlock()
		panic("sched: last runnable task exited")
	}
	next.state = Running
	s.current = next
	s.mu.Unlock()
	next.gate <- struct{}{}
}

// Join blocks until the task id has terminated, then releases its stack.
func (s *Scheduler) Join(id uint64) error {
	registered := false
	for {
		s.mu.Lock()
		t := s.tasks[id]
		if t == nil {
			s.mu.Unlock()
			return syserr.EBADF
		}
		if t == s.current {
			s.mu.Unlock()
			return syserr.EINVAL
		}
		if t.state == Terminated {
			if registered {
				t.observers--
			}
			var stackPtr unsafe.Pointer
			if t.observers <= 0 {
				delete(s.tasks, id)
				stackPtr = t.stackPtr
				t.stackPtr = nil
			}
			s.mu.Unlock()
			if stackPtr != nil {
				s.heap.Dealloc(stackPtr, TaskStackSize, 16)
			}
			return nil
		}
		cur := s.current
		t.joiners = append(t.joiners, cur)
		registered = true
		cur.state = Blocked
		next := s.ready.pop()
		if next == nil {
			s.mu.Unlock()
			panic("sched: join deadlock, no runnable task")
		}
		next.state = Running
		s.current = next
		cur.writeFrame(YieldResumePC)
		s.mu.Unlock()
		s.switchTo(cur, next)
	}
}

// Block parks the current task until Wake. A non-zero deadline is an
// absolute monotonic millisecond bound; expiry wakes the task with
// ETIMEDOUT. A wake that raced ahead of the block is consumed instead of
// parking.
func (s *Scheduler) Block(deadlineMS uint64) error {
	s.mu.Lock()
	cur := s.current
	if cur.wakePending {
		cur.wakePending = false
		s.mu.Unlock()
		return nil
	}
	cur.state = Blocked
	cur.deadline = deadlineMS
	cur.timedOut = false
	next := s.ready.pop()
	if next == nil {
		s.mu.Unlock()
		panic("sched: block deadlock, no runnable task")
	}
	next.state = Running
	s.current = next
	cur.writeFrame(YieldResumePC)
	s.mu.Unlock()
	s.switchTo(cur, next)
	if cur.timedOut {
		cur.timedOut = false
		return syserr.ETIMEDOUT
	}
	return nil
}

// BlockOn blocks until cond holds. cond is evaluated with the scheduler
// lock released; the caller's wake source must call Wake after making the
// condition true.
func (s *Scheduler) BlockOn(cond func() bool, deadlineMS uint64) error {
	for !cond() {
		if err := s.Block(deadlineMS); err != nil {
			return err
		}
	}
	return nil
}

// Wake makes a blocked task runnable, enqueued at the tail. Waking a task
// that is not blocked leaves a pending wake its next Block consumes.
func (s *Scheduler) Wake(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tasks[id]
	if t == nil {
		return false
	}
	return s.wakeLocked(t)
}

func (s *Scheduler) wakeLocked(t *Task) bool {
	switch t.state {
	case Blocked:
		t.state = Runnable
		t.deadline = 0
		s.ready.push(t)
		return true
	case Running, Runnable:
		t.wakePending = true
		return true
	}
	return false
}

// Current returns the Running task.
func (s *Scheduler) Current() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// CurrentID returns the Running task's id.
func (s *Scheduler) CurrentID() uint64 {
	return s.Current().id
}

// TaskState reports a task's state; ok is false for unknown ids.
func (s *Scheduler) TaskState(id uint64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tasks[id]
	if t == nil {
		return 0, false
	}
	return t.state, true
}

// ReadyLen returns the ready-queue length.
func (s *Scheduler) ReadyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.len()
}
