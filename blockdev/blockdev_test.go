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

package blockdev

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokuhirom/sabos-sub001/syserr"
)

func TestMemDiskRoundTrip(t *testing.T) {
	d := NewMemDisk(16)
	assert.Equal(t, uint64(16), d.Sectors())

	out := bytes.Repeat([]byte{0x5a}, SectorSize)
	require.NoError(t, d.WriteSector(7, out))

	in := make([]byte, SectorSize)
	require.NoError(t, d.ReadSector(7, in))
	assert.Equal(t, out, in)

	// untouched sectors read back zero
	require.NoError(t, d.ReadSector(8, in))
	assert.Equal(t, make([]byte, SectorSize), in)
}

func TestMemDiskBounds(t *testing.T) {
	d := NewMemDisk(4)
	buf := make([]byte, SectorSize)

	assert.Equal(t, syserr.EINVAL, d.ReadSector(4, buf))
	assert.Equal(t, syserr.EINVAL, d.WriteSector(100, buf))
	assert.Equal(t, syserr.EINVAL, d.ReadSector(0, buf[:10]))
	assert.Equal(t, syserr.EINVAL, d.WriteSector(0, make([]byte, SectorSize+1)))
}
