// SPDX-License-Identifier: GPL-3.0-or-later

package netline

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineTCPEcho(t *testing.T) {
	server := NewLine(nil, nil)
	var serverConnects int32
	server.SetOnConnected(func(*Line) { atomic.AddInt32(&serverConnects, 1) })
	require.NoError(t, server.BindServer(0))
	defer server.Close()

	addr, err := server.LocalAddr()
	require.NoError(t, err)
	port := uint16(addr.(*net.TCPAddr).Port)

	accepted := make(chan *Line, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := server.Accept()
		accepted <- conn
		acceptErr <- err
	}()

	client := NewLine(nil, nil)
	var clientConnects int32
	client.SetOnConnected(func(*Line) { atomic.AddInt32(&clientConnects, 1) })
	require.NoError(t, client.ConnectClient("127.0.0.1", port, false))
	defer client.Close()

	require.NoError(t, <-acceptErr)
	serverConn := <-accepted
	defer serverConn.Close()

	n, err := client.Send([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 16)
	n, err = serverConn.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	_, err = serverConn.Send(buf[:n])
	require.NoError(t, err)

	n, err = client.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))

	assert.Equal(t, int32(1), atomic.LoadInt32(&clientConnects))
	// once for the listener's BindServer, once for the accepted Line,
	// which inherits the listener's OnConnected
	assert.Equal(t, int32(2), atomic.LoadInt32(&serverConnects))
	assert.NotZero(t, client.LastSent())
	assert.NotZero(t, serverConn.LastReceived())
}

func TestLineUDPUnicast(t *testing.T) {
	b := NewLine(nil, nil)
	require.NoError(t, b.SetKind(UDP))
	require.NoError(t, b.BindServer(0))
	defer b.Close()

	bAddr, err := b.LocalAddr()
	require.NoError(t, err)
	bPort := uint16(bAddr.(*net.UDPAddr).Port)

	a := NewLine(nil, nil)
	require.NoError(t, a.SetKind(UDP))
	require.NoError(t, a.ConnectClient("127.0.0.1", bPort, false))
	defer a.Close()

	_, err = a.Send([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	ready, err := Readable([]Handle{b.Handle()}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, []Handle{b.Handle()}, ready)

	buf := make([]byte, 16)
	n, err := b.Recv(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, buf[:n])

	assert.Equal(t, "0.0.0.0", b.PeerIP())
}

func TestLineConnectClientBroadcastRejected(t *testing.T) {
	l := NewLine(nil, nil)
	require.NoError(t, l.SetKind(UDP))

	err := l.ConnectClient("255.255.255.255", 9999, false)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.False(t, l.Active())
	assert.Equal(t, InvalidHandle, l.Handle())
}

func TestLineCloseIdempotent(t *testing.T) {
	server := NewLine(nil, nil)
	require.NoError(t, server.BindServer(0))

	var disconnects int32
	server.SetOnDisconnected(func(*Line) { atomic.AddInt32(&disconnects, 1) })

	require.NoError(t, server.Close())
	require.NoError(t, server.Close())
	assert.Equal(t, int32(1), atomic.LoadInt32(&disconnects))
	assert.False(t, server.Active())
}

func TestLineTCPPeerCloseSelfCloses(t *testing.T) {
	server := NewLine(nil, nil)
	require.NoError(t, server.BindServer(0))
	defer server.Close()

	addr, err := server.LocalAddr()
	require.NoError(t, err)
	port := uint16(addr.(*net.TCPAddr).Port)

	accepted := make(chan *Line, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := server.Accept()
		accepted <- conn
		acceptErr <- err
	}()

	client := NewLine(nil, nil)
	var disconnects int32
	client.SetOnDisconnected(func(*Line) { atomic.AddInt32(&disconnects, 1) })
	require.NoError(t, client.ConnectClient("127.0.0.1", port, false))

	require.NoError(t, <-acceptErr)
	serverConn := <-accepted
	require.NoError(t, serverConn.Close())

	buf := make([]byte, 16)
	_, err = client.Recv(buf)
	var abort *SilentAbort
	require.ErrorAs(t, err, &abort)
	assert.False(t, client.Active())

	_, err = client.Recv(buf)
	require.Error(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&disconnects))
}

func TestLineSetKindFamilyWhileActive(t *testing.T) {
	server := NewLine(nil, nil)
	require.NoError(t, server.BindServer(0))
	defer server.Close()

	var cfgErr *ConfigError
	require.ErrorAs(t, server.SetKind(UDP), &cfgErr)
	require.ErrorAs(t, server.SetFamily(IPv6), &cfgErr)
}

func TestLineAcceptOnUDPRejected(t *testing.T) {
	l := NewLine(nil, nil)
	require.NoError(t, l.SetKind(UDP))
	require.NoError(t, l.BindServer(0))
	defer l.Close()

	_, err := l.Accept()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLineOptions(t *testing.T) {
	l := NewLine(nil, nil)
	require.NoError(t, l.BindServer(0))
	defer l.Close()

	require.NoError(t, l.EnableNoDelay())
	require.NoError(t, l.EnableKeepAlive())
	require.NoError(t, l.EnableReuseAddress())
	require.NoError(t, l.SetReceiveBuffer(256)) // clamped up to minReceiveBuffer
	require.NoError(t, l.SetSendBuffer(8192))
	require.NoError(t, l.SetReceiveTimeout(50 * time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, l.ReceiveTimeout())
	require.NoError(t, l.SetSendTimeout(50 * time.Millisecond))
	assert.Equal(t, 50*time.Millisecond, l.SendTimeout())

	udp := NewLine(nil, nil)
	require.NoError(t, udp.SetKind(UDP))
	require.NoError(t, udp.BindServer(0))
	defer udp.Close()
	require.NoError(t, udp.EnableBroadcast())
	require.NoError(t, udp.EnableNoDelay()) // no-op on UDP
}
