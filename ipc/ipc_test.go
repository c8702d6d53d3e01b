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

package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokuhirom/sabos-sub001/heap"
	"github.com/tokuhirom/sabos-sub001/sched"
	"github.com/tokuhirom/sabos-sub001/syserr"
)

func newRig(t *testing.T) (*sched.Scheduler, *Registry) {
	t.Helper()
	h, err := heap.New(make([]byte, 4<<20))
	require.NoError(t, err)
	s := sched.New(h, 100)
	s.Bootstrap("boot")
	return s, NewRegistry(s)
}

func TestSendRecvImmediate(t *testing.T) {
	_, r := newRig(t)
	port := r.Create()

	require.NoError(t, r.Send(port, []byte("one")))
	require.NoError(t, r.Send(port, []byte("two")))

	msg, err := r.Recv(port, 0)
	require.NoError(t, err)
	assert.Equal(t, "one", string(msg), "ports are FIFO")
	msg, err = r.Recv(port, 0)
	require.NoError(t, err)
	assert.Equal(t, "two", string(msg))
}

func TestSendCopiesMessage(t *testing.T) {
	_, r := newRig(t)
	port := r.Create()

	buf := []byte("fragile")
	require.NoError(t, r.Send(port, buf))
	buf[0] = 'X'

	msg, err := r.Recv(port, 0)
	require.NoError(t, err)
	assert.Equal(t, "fragile", string(msg))
}

func TestRecvBlocksUntilSend(t *testing.T) {
	s, r := newRig(t)
	port := r.Create()

	var got []byte
	var recvErr error
	id, err := s.Spawn("receiver", func() {
		got, recvErr = r.Recv(port, 0)
	})
	require.NoError(t, err)

	s.YieldNow() // receiver parks on the empty port
	st, _ := s.TaskState(id)
	assert.Equal(t, sched.Blocked, st)

	require.NoError(t, r.Send(port, []byte("wake up")))
	require.NoError(t, s.Join(id))
	require.NoError(t, recvErr)
	assert.Equal(t, "wake up", string(got))
}

func TestRecvDeadlineTimesOut(t *testing.T) {
	s, r := newRig(t)
	port := r.Create()

	var recvErr error
	id, err := s.Spawn("receiver", func() {
		_, recvErr = r.Recv(port, s.NowMillis()+30)
	})
	require.NoError(t, err)
	s.YieldNow()

	for i := 0; i < 4; i++ { // 40ms at 100Hz
		s.Tick()
	}
	s.Checkpoint()
	require.NoError(t, s.Join(id))
	assert.Equal(t, syserr.ETIMEDOUT, recvErr)

	// the timed-out waiter must be gone: a later send wakes nobody and
	// just queues
	require.NoError(t, r.Send(port, []byte("late")))
	n, err := r.Len(port)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSendFullPort(t *testing.T) {
	_, r := newRig(t)
	port := r.Create()
	for i := 0; i < queueCap; i++ {
		require.NoError(t, r.Send(port, []byte{byte(i)}))
	}
	assert.Equal(t, syserr.EAGAIN, r.Send(port, []byte("overflow")))
}

func TestCloseWakesWaiters(t *testing.T) {
	s, r := newRig(t)
	port := r.Create()

	var recvErr error
	id, err := s.Spawn("receiver", func() {
		_, recvErr = r.Recv(port, 0)
	})
	require.NoError(t, err)
	s.YieldNow()

	require.NoError(t, r.Close(port))
	require.NoError(t, s.Join(id))
	assert.Equal(t, syserr.EBADF, recvErr)

	assert.Equal(t, syserr.EBADF, r.Send(port, []byte("x")))
	assert.Equal(t, syserr.EBADF, r.Close(port))
}

func TestUnknownPort(t *testing.T) {
	_, r := newRig(t)
	assert.Equal(t, syserr.EBADF, r.Send(404, nil))
	_, err := r.Recv(404, 0)
	assert.Equal(t, syserr.EBADF, err)
}
