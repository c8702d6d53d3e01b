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
	"github.com/tokuhirom/sabos-sub001/blockdev"
	"github.com/tokuhirom/sabos-sub001/sysnum"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

// blockCall handles 80-89: raw sector access for the user-space
// filesystem daemon. Buffers are always exactly one sector.
func (s *Services) blockCall(nr, a1, a2 uint64) int64 {
	if s.Disk == nil {
		return syserr.ENOSYS.Encode()
	}
	switch nr {
	case sysnum.SYS_BLOCK_READ:
		buf, errno := userBytes(s.Space, a2, blockdev.SectorSize)
		if errno != syserr.OK {
			return errno.Encode()
		}
		if err := s.Disk.ReadSector(a1, buf); err != nil {
			return syserr.From(err).Encode()
		}
		return blockdev.SectorSize

	case sysnum.SYS_BLOCK_WRITE:
		buf, errno := userBytes(s.Space, a2, blockdev.SectorSize)
		if errno != syserr.OK {
			return errno.Encode()
		}
		if err := s.Disk.WriteSector(a1, buf); err != nil {
			return syserr.From(err).Encode()
		}
		return blockdev.SectorSize
	}
	return syserr.ENOSYS.Encode()
}
