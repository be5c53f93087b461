// SPDX-License-Identifier: GPL-3.0-or-later

package netline

import (
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handleOf extracts the raw OS [Handle] backing a [net.Conn] (or
// [net.Listener]) that implements [syscall.Conn], for exercising [Readable]
// directly against real sockets without going through [Line].
func handleOf(t *testing.T, sc syscall.Conn) Handle {
	raw, err := sc.SyscallConn()
	require.NoError(t, err)
	var h Handle
	require.NoError(t, raw.Control(func(fd uintptr) { h = Handle(fd) }))
	return h
}

func TestReadableEmptyHandles(t *testing.T) {
	start := time.Now()
	ready, err := Readable(nil, 5*time.Second)
	require.NoError(t, err)
	assert.Empty(t, ready)
	assert.Less(t, time.Since(start), time.Second, "empty handles must return immediately regardless of timeout")
}

func TestReadableSubset(t *testing.T) {
	const n = 8
	type pair struct {
		serverConn net.Conn
		clientConn net.Conn
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	pairs := make([]pair, n)
	for i := range n {
		clientConn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		serverConn, err := ln.Accept()
		require.NoError(t, err)
		pairs[i] = pair{serverConn: serverConn, clientConn: clientConn}
		defer clientConn.Close()
		defer serverConn.Close()
	}

	var handles []Handle
	want := map[Handle]bool{}
	for i, p := range pairs {
		h := handleOf(t, p.serverConn.(syscall.Conn))
		handles = append(handles, h)
		if i%2 == 1 {
			_, err := p.clientConn.Write([]byte{0x01})
			require.NoError(t, err)
			want[h] = true
		}
	}

	ready, err := Readable(handles, time.Second)
	require.NoError(t, err)

	assert.Len(t, ready, len(want))
	for _, h := range ready {
		assert.True(t, want[h], "handle %v should not have been reported ready", h)
		assert.Contains(t, handles, h, "Readable must only return handles it was given")
	}

	// order is preserved: ready is a sub-sequence of handles
	j := 0
	for _, h := range handles {
		if want[h] {
			assert.Equal(t, h, ready[j])
			j++
		}
	}
}

func TestReadableAny(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer clientConn.Close()
	serverConn, err := ln.Accept()
	require.NoError(t, err)
	defer serverConn.Close()

	h := handleOf(t, serverConn.(syscall.Conn))

	any, err := ReadableAny([]Handle{h}, 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, any)

	_, err = clientConn.Write([]byte{0x42})
	require.NoError(t, err)

	any, err = ReadableAny([]Handle{h}, time.Second)
	require.NoError(t, err)
	assert.True(t, any)
}

// TestReadableScalability exercises the >1024-descriptor path: the whole
// point of building a custom-sized bitmap instead of using the fixed
// FD_SETSIZE fd_set. Skipped under -short because opening 2048 loopback
// connection pairs is expensive.
func TestReadableScalability(t *testing.T) {
	if testing.Short() {
		t.Skip("opens 2048 loopback sockets")
	}

	const n = 2048
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	handles := make([]Handle, n)
	clients := make([]net.Conn, n)
	for i := range n {
		clientConn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		serverConn, err := ln.Accept()
		require.NoError(t, err)
		t.Cleanup(func() { clientConn.Close(); serverConn.Close() })
		clients[i] = clientConn
		handles[i] = handleOf(t, serverConn.(syscall.Conn))
	}

	want := map[Handle]bool{}
	for i := range n {
		if i%2 == 1 {
			_, err := clients[i].Write([]byte{0x01})
			require.NoError(t, err)
			want[handles[i]] = true
		}
	}

	ready, err := Readable(handles, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, ready, n/2)
	for _, h := range ready {
		assert.True(t, want[h])
	}
}
