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

// Package ipc implements kernel message ports: the channel user daemons
// (fat32d, netd) and the kernel use to talk.
//
// A port is a bounded FIFO of byte messages. Send never blocks (EAGAIN
// when full); Recv blocks the calling task, optionally up to an absolute
// monotonic-millisecond deadline. Wakes happen outside the registry lock,
// per the kernel's locking convention.
package ipc

import (
	"github.com/tokuhirom/sabos-sub001/internal/spin"
	"github.com/tokuhirom/sabos-sub001/sched"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// queueCap bounds each port's backlog.
const queueCap = 16

type port struct {
	queue   [][]byte
	waiters []uint64
}

// Registry owns all ports.
type Registry struct {
	mu    spin.Lock
	sched *sched.Scheduler
	next  uint64
	ports map[uint64]*port
}

// NewRegistry builds a registry whose Recv blocks through s.
func NewRegistry(s *sched.Scheduler) *Registry {
	return &Registry{sched: s, ports: make(map[uint64]*port)}
}

// Create allocates a fresh port id.
func (r *Registry) Create() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.ports[r.next] = &port{}
	return r.next
}

// Send enqueues a copy of msg. Full port: EAGAIN. Unknown port: EBADF.
func (r *Registry) Send(id uint64, msg []byte) error {
	r.mu.Lock()
	p, ok := r.ports[id]
	if !ok {
		r.mu.Unlock()
		return syserr.EBADF
	}
	if len(p.queue) >= queueCap {
		r.mu.Unlock()
		return syserr.EAGAIN
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)
	p.queue = append(p.queue, cp)

	var wake uint64
	if len(p.waiters) > 0 {
		wake = p.waiters[0]
		p.waiters = p.waiters[1:]
	}
	r.mu.Unlock()

	if wake != 0 {
		r.sched.Wake(wake)
	}
	return nil
}

// Recv dequeues the next message, blocking the current task while the
// port is empty. deadlineMS of 0 means wait forever; expiry returns
// ETIMEDOUT. A port closed mid-wait returns EBADF.
func (r *Registry) Recv(id uint64, deadlineMS uint64) ([]byte, error) {
	self := r.sched.CurrentID()
	for {
		r.mu.Lock()
		p, ok := r.ports[id]
		if !ok {
			r.mu.Unlock()
			return nil, syserr.EBADF
		}
		if len(p.queue) > 0 {
			msg := p.queue[0]
			p.queue = p.queue[1:]
			r.mu.Unlock()
			return msg, nil
		}
		p.waiters = append(p.waiters, self)
		r.mu.Unlock()

		if err := r.sched.Block(deadlineMS); err != nil {
			r.dropWaiter(id, self)
			return nil, err
		}
	}
}

// Close destroys the port and wakes everything parked on it.
func (r *Registry) Close(id uint64) error {
	r.mu.Lock()
	p, ok := r.ports[id]
	if !ok {
		r.mu.Unlock()
		return syserr.EBADF
	}
	delete(r.ports, id)
	waiters := p.waiters
	p.waiters = nil
	r.mu.Unlock()

	for _, w := range waiters {
		r.sched.Wake(w)
	}
	return nil
}

// Len returns the queued-message count, or EBADF.
func (r *Registry) Len(id uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ports[id]
	if !ok {
		return 0, syserr.EBADF
	}
	return len(p.queue), nil
}

func (r *Registry) dropWaiter(id, task uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ports[id]
	if !ok {
		return
	}
	for i, w := range p.waiters {
		if w == task {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}
