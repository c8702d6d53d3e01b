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
)

// processCall handles 30-39: process management.
func (s *Services) processCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_GETPID:
		return int64(s.Sched.CurrentID())
	}
	return syserr.ENOSYS.Encode()
}

// exitCall handles SYS_EXIT: release the task's handles and take the
// non-local jump out of the Ring-3 trampoline. Does not return.
func (s *Services) exitCall(status uint64) int64 {
	id := s.Sched.CurrentID()
	s.mu.Lock()
	t := s.tables[id]
	delete(s.tables, id)
	s.mu.Unlock()
	if t != nil {
		t.CloseAll()
	}
	s.Exit(int64(status))
	return 0 // unreachable: Exit unwinds
}

// threadCall handles 110-119: user-visible threads, backed one-to-one by
// kernel tasks.
func (s *Services) threadCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_THREAD_CREATE:
		if s.SpawnUser == nil {
			return syserr.ENOSYS.Encode()
		}
		id, err := s.SpawnUser(a1, a2)
		if err != nil {
			return syserr.From(err).Encode()
		}
		return int64(id)

	case sysnum.SYS_THREAD_EXIT:
		s.Sched.Exit() // unwinds through the trampoline's fault filter

	case sysnum.SYS_THREAD_JOIN:
		if err := s.Sched.Join(a1); err != nil {
			return syserr.From(err).Encode()
		}
		return 0
	}
	return syserr.ENOSYS.Encode()
}
