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

package syscalls

import (
	"github.com/tokuhirom/sabos-sub001/sysnum"
	"github.com/tokuhirom/sabos-sub001/syserr"
	"github.com/tokuhirom/sabos-sub001/userptr"
)

// futexCall handles 120-129: futex wait/wake on a user word.
func (s *Services) futexCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_FUTEX_WAIT:
		w, errno := userptr.Word(s.Space, a1)
		if errno != syserr.OK {
			return errno.Encode()
		}
		if *w != uint32(a2) {
			return syserr.EAGAIN.Encode()
		}
		self := s.Sched.CurrentID()
		s.mu.Lock()
		s.futexes[a1] = append(s.futexes[a1], self)
		s.mu.Unlock()

		if err := s.Sched.Block(0); err != nil {
			s.dropFutexWaiter(a1, self)
			return syserr.From(err).Encode()
		}
		return 0

	case sysnum.SYS_FUTEX_WAKE:
		// the address only keys the wait queue; still refuse kernel
		// pointers
		if _, errno := userptr.Word(s.Space, a1); errno != syserr.OK {
			return errno.Encode()
		}
		s.mu.Lock()
		waiters := s.futexes[a1]
		n := int(a2)
		if n > len(waiters) {
			n = len(waiters)
		}
		woken := waiters[:n]
		rest := waiters[n:]
		if len(rest) == 0 {
			delete(s.futexes, a1)
		} else {
			s.futexes[a1] = rest
		}
		s.mu.Unlock()

		for _, id := range woken {
			s.Sched.Wake(id)
		}
		return int64(len(woken))
	}
	return syserr.ENOSYS.Encode()
}

func (s *Services) dropFutexWaiter(addr, task uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiters := s.futexes[addr]
	for i, w := range waiters {
		if w == task {
			s.futexes[addr] = append(waiters[:i], waiters[i+1:]...)
			return
		}
	}
}

// timeCall handles 130-139.
func (s *Services) timeCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_SLEEP_MS:
		if a1 == 0 {
			s.Sched.YieldNow()
			return 0
		}
		deadline := s.Sched.NowMillis() + a1
		// deadline expiry is the expected wake; anything earlier is a
		// spurious wake and we just sleep again
		for s.Sched.NowMillis() < deadline {
			if err := s.Sched.Block(deadline); err == syserr.ETIMEDOUT {
				break
			}
		}
		return 0
	}
	return syserr.ENOSYS.Encode()
}
