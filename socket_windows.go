//go:build windows

//
// SPDX-License-Identifier: GPL-3.0-or-later
//

// socket_windows.go is the Winsock2 half of the socket façade; see
// socket_unix.go for the POSIX half and the rationale for splitting it.
package netline

import (
	"net"
	"net/netip"
	"time"

	"golang.org/x/sys/windows"
)

// Winsock must be started once per process before any socket call. The
// original design dynamically probed ws2_32.dll then wship6.dll for
// GetAddrInfoW across OS versions; per the Design Notes that fallback is a
// documented gap in this re-implementation, which links directly against
// the current Winsock import library instead (OS floor: Windows Vista and
// later). There is no corresponding WSACleanup call: Go has no process
// shutdown hook to run it from, and the OS reclaims the resource on exit.
var wsaData windows.WSAData

func init() {
	if err := windows.WSAStartup(0x0202, &wsaData); err != nil {
		panic(err)
	}
}

func sockCreate(family Family, kind Kind) (Handle, error) {
	domain := windows.AF_INET
	if family == IPv6 {
		domain = windows.AF_INET6
	}
	sotype, proto := windows.SOCK_STREAM, windows.IPPROTO_TCP
	if kind == UDP {
		sotype, proto = windows.SOCK_DGRAM, windows.IPPROTO_UDP
	}
	fd, err := windows.Socket(domain, sotype, proto)
	if err != nil {
		return InvalidHandle, err
	}
	return Handle(fd), nil
}

func sockClose(h Handle) error {
	return windows.Closesocket(windows.Handle(h))
}

func sockSetNonblock(h Handle, nonblocking bool) error {
	var v uint32
	if nonblocking {
		v = 1
	}
	return windows.IoctlSocket(windows.Handle(h), windows.FIONBIO, &v)
}

func sockConnect(h Handle, ap netip.AddrPort) error {
	sa, err := toSockaddrWindows(ap)
	if err != nil {
		return err
	}
	err = windows.Connect(windows.Handle(h), sa)
	if err == windows.WSAEWOULDBLOCK {
		return nil
	}
	return err
}

// sockWaitConnect blocks until a non-blocking connect started by sockConnect
// completes or timeout elapses. WSAPoll's POLLOUT event, like select(2)'s
// write-readiness on POSIX, signals connect completion rather than ordinary
// write-readiness.
func sockWaitConnect(h Handle, timeout time.Duration) error {
	pfds := []windows.WSAPollFD{{Fd: windows.Handle(h), Events: windows.POLLOUT}}
	n, err := windows.WSAPoll(pfds, int32(timeout/time.Millisecond))
	if err != nil {
		return err
	}
	if n == 0 {
		return windows.WSAETIMEDOUT
	}
	errno, err := windows.GetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return windows.Errno(errno)
	}
	return nil
}

func sockBind(h Handle, ap netip.AddrPort) error {
	sa, err := toSockaddrWindows(ap)
	if err != nil {
		return err
	}
	return windows.Bind(windows.Handle(h), sa)
}

func sockListen(h Handle, backlog int) error {
	return windows.Listen(windows.Handle(h), backlog)
}

func sockAccept(h Handle, kind Kind) (Handle, net.Addr, error) {
	nfd, sa, err := windows.Accept(windows.Handle(h))
	if err != nil {
		return InvalidHandle, nil, err
	}
	return Handle(nfd), fromSockaddrWindows(sa, kind), nil
}

func sockSend(h Handle, buf []byte) (int, error) {
	return windows.Send(windows.Handle(h), buf, 0)
}

func sockRecv(h Handle, buf []byte) (int, error) {
	return windows.Recv(windows.Handle(h), buf, 0)
}

func sockSetReuseAddr(h Handle) error {
	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
}

func sockSetIPv6Only(h Handle, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return windows.SetsockoptInt(windows.Handle(h), windows.IPPROTO_IPV6, windows.IPV6_V6ONLY, v)
}

func sockSetNoDelay(h Handle, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return windows.SetsockoptInt(windows.Handle(h), windows.IPPROTO_TCP, windows.TCP_NODELAY, v)
}

func sockSetKeepAlive(h Handle, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_KEEPALIVE, v)
}

func sockSetBroadcast(h Handle, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_BROADCAST, v)
}

func sockSetRecvBuffer(h Handle, n int) error {
	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_RCVBUF, n)
}

func sockSetSendBuffer(h Handle, n int) error {
	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_SNDBUF, n)
}

func sockSetRecvTimeout(h Handle, d time.Duration) error {
	ms := int(d / time.Millisecond)
	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_RCVTIMEO, ms)
}

func sockSetSendTimeout(h Handle, d time.Duration) error {
	ms := int(d / time.Millisecond)
	return windows.SetsockoptInt(windows.Handle(h), windows.SOL_SOCKET, windows.SO_SNDTIMEO, ms)
}

func sockPeerAddr(h Handle, kind Kind) (net.Addr, error) {
	sa, err := windows.Getpeername(windows.Handle(h))
	if err != nil {
		return nil, err
	}
	return fromSockaddrWindows(sa, kind), nil
}

func sockLocalAddr(h Handle, kind Kind) (net.Addr, error) {
	sa, err := windows.Getsockname(windows.Handle(h))
	if err != nil {
		return nil, err
	}
	return fromSockaddrWindows(sa, kind), nil
}

func toSockaddrWindows(ap netip.AddrPort) (windows.Sockaddr, error) {
	addr := ap.Addr()
	switch {
	case addr.Is4() || addr.Is4In6():
		return &windows.SockaddrInet4{Port: int(ap.Port()), Addr: addr.As4()}, nil
	case addr.Is6():
		var zoneID int
		if zone := addr.Zone(); zone != "" {
			iface, err := net.InterfaceByName(zone)
			if err != nil {
				return nil, &AddressError{Addr: ap.Addr().String(), Err: err}
			}
			zoneID = iface.Index
		}
		return &windows.SockaddrInet6{Port: int(ap.Port()), ZoneId: uint32(zoneID), Addr: addr.As16()}, nil
	default:
		return nil, &AddressError{Addr: ap.Addr().String(), Err: errAddressUnknownFamily}
	}
}

func fromSockaddrWindows(sa windows.Sockaddr, kind Kind) net.Addr {
	var ip net.IP
	var port int
	switch a := sa.(type) {
	case *windows.SockaddrInet4:
		ip, port = net.IP(a.Addr[:]), a.Port
	case *windows.SockaddrInet6:
		ip, port = net.IP(a.Addr[:]), a.Port
	default:
		return nil
	}
	if kind == UDP {
		return &net.UDPAddr{IP: ip, Port: port}
	}
	return &net.TCPAddr{IP: ip, Port: port}
}
