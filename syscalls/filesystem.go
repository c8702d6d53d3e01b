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
	"unsafe"

	"github.com/tokuhirom/sabos-sub001/internal/hack"
	"github.com/tokuhirom/sabos-sub001/sysnum"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// fsCall handles 12-19: path-based filesystem operations.
func (s *Services) fsCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_LIST_DIR:
		buf, errno := userBytes(s.Space, a1, a2)
		if errno != syserr.OK {
			return errno.Encode()
		}
		n := 0
		for _, name := range s.FS.List() {
			line := name + "\n"
			if n+len(line) > len(buf) {
				break
			}
			n += copy(buf[n:], line)
		}
		return int64(n)
	}
	return syserr.ENOSYS.Encode()
}

// handleCall handles 70-79: file handles. Data operations take an iovec
// parameter block; two registers are not enough for (handle, ptr, len).
func (s *Services) handleCall(nr, a1, a2 uint64) int64 {
	switch nr {
	case sysnum.SYS_OPEN:
		path, errno := userBytes(s.Space, a1, a2)
		if errno != syserr.OK {
			return errno.Encode()
		}
		if len(path) == 0 {
			return syserr.EINVAL.Encode()
		}
		f, err := s.FS.Open(hack.ByteSliceToString(path))
		if err != nil {
			return syserr.From(err).Encode()
		}
		return s.table().Open(f)

	case sysnum.SYS_HANDLE_READ:
		iov, errno := s.readIovec(a2)
		if errno != syserr.OK {
			return errno.Encode()
		}
		buf, errno := userBytes(s.Space, iov.Addr, iov.Len)
		if errno != syserr.OK {
			return errno.Encode()
		}
		n, err := s.table().Read(int64(a1), buf)
		if err != nil {
			return syserr.From(err).Encode()
		}
		return int64(n)

	case sysnum.SYS_HANDLE_WRITE:
		iov, errno := s.readIovec(a2)
		if errno != syserr.OK {
			return errno.Encode()
		}
		buf, errno := userBytes(s.Space, iov.Addr, iov.Len)
		if errno != syserr.OK {
			return errno.Encode()
		}
		n, err := s.table().Write(int64(a1), buf)
		if err != nil {
			return syserr.From(err).Encode()
		}
		return int64(n)

	case sysnum.SYS_HANDLE_CLOSE:
		if err := s.table().Close(int64(a1)); err != nil {
			return syserr.From(err).Encode()
		}
		return 0

	case sysnum.SYS_HANDLE_STAT:
		st, errno := userSlice[statBuf](s.Space, a2, 1)
		if errno != syserr.OK {
			return errno.Encode()
		}
		size, err := s.table().Stat(int64(a1))
		if err != nil {
			return syserr.From(err).Encode()
		}
		st[0] = statBuf{Size: uint64(size)}
		return 0

	case sysnum.SYS_HANDLE_SEEK:
		args, errno := userSlice[seekArgs](s.Space, a2, 1)
		if errno != syserr.OK {
			return errno.Encode()
		}
		pos, err := s.table().Seek(int64(a1), args[0].Off, int(args[0].Whence))
		if err != nil {
			return syserr.From(err).Encode()
		}
		return pos
	}
	return syserr.ENOSYS.Encode()
}

// Parameter blocks are ABI; a size change must not compile.
var (
	_ [16]byte = [unsafe.Sizeof(iovec{})]byte{}
	_ [16]byte = [unsafe.Sizeof(statBuf{})]byte{}
	_ [16]byte = [unsafe.Sizeof(seekArgs{})]byte{}
	_ [24]byte = [unsafe.Sizeof(recvArgs{})]byte{}
)
