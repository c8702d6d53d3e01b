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

// ipcCall handles 90-99: message ports.
//
// ipc_recv is a blocking call: a validated view must not live across the
// block, so the message is received into kernel memory first and the
// user buffer is re-validated for the copy-out.
func (s *Services) ipcCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_IPC_CREATE:
		return int64(s.Ports.Create())

	case sysnum.SYS_IPC_SEND:
		iov, errno := s.readIovec(a2)
		if errno != syserr.OK {
			return errno.Encode()
		}
		msg, errno := userBytes(s.Space, iov.Addr, iov.Len)
		if errno != syserr.OK {
			return errno.Encode()
		}
		if err := s.Ports.Send(a1, msg); err != nil {
			return syserr.From(err).Encode()
		}
		return int64(len(msg))

	case sysnum.SYS_IPC_RECV:
		args, errno := userSlice[recvArgs](s.Space, a2, 1)
		if errno != syserr.OK {
			return errno.Encode()
		}
		// copy the parameters out before blocking; the view is dead
		// after the first yield
		addr, capacity, deadline := args[0].Addr, args[0].Cap, args[0].DeadlineMS

		msg, err := s.Ports.Recv(a1, deadline)
		if err != nil {
			return syserr.From(err).Encode()
		}
		if uint64(len(msg)) > capacity {
			msg = msg[:capacity]
		}
		buf, errno := userBytes(s.Space, addr, uint64(len(msg)))
		if errno != syserr.OK {
			return errno.Encode()
		}
		copy(buf, msg)
		return int64(len(msg))

	case sysnum.SYS_IPC_CLOSE:
		if err := s.Ports.Close(a1); err != nil {
			return syserr.From(err).Encode()
		}
		return 0
	}
	return syserr.ENOSYS.Encode()
}
