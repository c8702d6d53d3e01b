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

// consoleCall handles the 0-9 range: console I/O.
func (s *Services) consoleCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_READ:
		buf, errno := userBytes(s.Space, a1, a2)
		if errno != syserr.OK {
			return errno.Encode()
		}
		return int64(s.Console.ReadInput(buf))

	case sysnum.SYS_WRITE:
		buf, errno := userBytes(s.Space, a1, a2)
		if errno != syserr.OK {
			return errno.Encode()
		}
		n, err := s.Console.Write(buf)
		if err != nil {
			return syserr.EIO.Encode()
		}
		return int64(n)

	case sysnum.SYS_CLEAR_SCREEN:
		s.Console.Clear()
		return 0
	}
	return syserr.ENOSYS.Encode()
}
