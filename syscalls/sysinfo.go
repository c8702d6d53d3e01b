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
	"github.com/bytedance/gopkg/lang/fastrand"

	"github.com/tokuhirom/sabos-sub001/sysnum"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// debugCall handles 10-11: test and debug hooks.
func (s *Services) debugCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_SELFTEST:
		if s.Selftest == nil {
			return 0
		}
		if err := s.Selftest(); err != nil {
			return syserr.From(err).Encode()
		}
		return 0
	}
	return syserr.ENOSYS.Encode()
}

// sysinfoCall handles 20-29: clocks and entropy.
func (s *Services) sysinfoCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_CLOCK_MONOTONIC_MS:
		return int64(s.Sched.NowMillis())

	case sysnum.SYS_GETRANDOM:
		buf, errno := userBytes(s.Space, a1, a2)
		if errno != syserr.OK {
			return errno.Encode()
		}
		fastrand.Read(buf)
		return int64(len(buf))
	}
	return syserr.ENOSYS.Encode()
}

// controlCall handles 50-59: system control.
func (s *Services) controlCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_HALT:
		if s.Halt != nil {
			s.Halt(uint32(a1))
		}
		return 0
	}
	return syserr.ENOSYS.Encode()
}
