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

package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndClear(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	n, err := c.Write([]byte("hi\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "hi\n", buf.String())

	buf.Reset()
	c.Clear()
	assert.Equal(t, clearSeq, buf.String())
}

func TestNilOutputDiscards(t *testing.T) {
	c := New(nil)
	n, err := c.Write([]byte("into the void"))
	require.NoError(t, err)
	assert.Equal(t, 13, n)
}

func TestInputRing(t *testing.T) {
	c := New(nil)
	assert.Equal(t, 0, c.Buffered())

	assert.Equal(t, 5, c.PushInput([]byte("hello")))
	assert.Equal(t, 5, c.Buffered())

	p := make([]byte, 3)
	assert.Equal(t, 3, c.ReadInput(p))
	assert.Equal(t, "hel", string(p))

	assert.Equal(t, 2, c.ReadInput(p))
	assert.Equal(t, "lo", string(p[:2]))
	assert.Equal(t, 0, c.ReadInput(p), "empty ring reads zero")
}

func TestInputRingOverflowDrops(t *testing.T) {
	c := New(nil)
	big := make([]byte, inputCap+100)
	assert.Equal(t, inputCap, c.PushInput(big))
	assert.Equal(t, 0, c.PushInput([]byte{1}), "full ring drops")

	p := make([]byte, inputCap)
	assert.Equal(t, inputCap, c.ReadInput(p))
	assert.Equal(t, 1, c.PushInput([]byte{1}), "drained ring accepts again")
}
