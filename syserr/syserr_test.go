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

package syserr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Every defined kind must survive an encode/decode round trip.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	kinds := []Errno{EIO, EBADF, EAGAIN, ENOMEM, EFAULT, EINVAL, ENOSYS, ETIMEDOUT, EALIGN}
	for _, k := range kinds {
		ret := k.Encode()
		assert.True(t, IsError(ret), "kind %v", k)
		got, ok := Decode(ret)
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
}

func TestDecodeNonErrors(t *testing.T) {
	for _, ret := range []int64{0, 1, 42, 1 << 40, -4096, -1 << 40} {
		_, ok := Decode(ret)
		assert.False(t, ok, "ret %d", ret)
	}
	assert.Equal(t, int64(0), OK.Encode())
}

func TestFrom(t *testing.T) {
	assert.Equal(t, OK, From(nil))
	assert.Equal(t, EBADF, From(EBADF))
	assert.Equal(t, EIO, From(errors.New("disk on fire")))
}

func TestErrorStrings(t *testing.T) {
	assert.Equal(t, "invalid pointer", EFAULT.Error())
	assert.Equal(t, "errno 77", Errno(77).Error())
}
