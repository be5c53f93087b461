//go:build linux || darwin

//
// SPDX-License-Identifier: GPL-3.0-or-later
//

// Package netline's POSIX socket façade: the BSD-sockets half of the
// "thin, trait-style socket-ops façade implemented twice" the original
// design calls for. socket_windows.go implements the same function
// signatures against Winsock2.
package netline

import (
	"net"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"
)

func sockCreate(family Family, kind Kind) (Handle, error) {
	domain := unix.AF_INET
	if family == IPv6 {
		domain = unix.AF_INET6
	}
	sotype, proto := unix.SOCK_STREAM, unix.IPPROTO_TCP
	if kind == UDP {
		sotype, proto = unix.SOCK_DGRAM, unix.IPPROTO_UDP
	}
	fd, err := unix.Socket(domain, sotype|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return InvalidHandle, err
	}
	return Handle(fd), nil
}

func sockClose(h Handle) error {
	return unix.Close(int(h))
}

func sockSetNonblock(h Handle, nonblocking bool) error {
	return unix.SetNonblock(int(h), nonblocking)
}

func sockConnect(h Handle, ap netip.AddrPort) error {
	sa, err := toSockaddrUnix(ap)
	if err != nil {
		return err
	}
	err = unix.Connect(int(h), sa)
	if err == unix.EINPROGRESS {
		return nil
	}
	return err
}

// sockWaitConnect blocks until a non-blocking connect started by sockConnect
// completes or timeout elapses, using poll(2) on a single descriptor's
// write-readiness (connect completion, unlike ordinary I/O readiness, is
// signaled by writability). poll(2) takes the descriptor by value rather
// than as a bit position in a fixed-size [unix.FdSet], so descriptors
// numbered at or above FD_SETSIZE work too.
func sockWaitConnect(h Handle, timeout time.Duration) error {
	fd := int(h)
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}

	n, err := unix.Poll(pfds, int(timeout/time.Millisecond))
	if err != nil {
		return err
	}
	if n == 0 {
		return unix.ETIMEDOUT
	}
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func sockBind(h Handle, ap netip.AddrPort) error {
	sa, err := toSockaddrUnix(ap)
	if err != nil {
		return err
	}
	return unix.Bind(int(h), sa)
}

func sockListen(h Handle, backlog int) error {
	return unix.Listen(int(h), backlog)
}

func sockAccept(h Handle, kind Kind) (Handle, net.Addr, error) {
	nfd, sa, err := unix.Accept(int(h))
	if err != nil {
		return InvalidHandle, nil, err
	}
	_ = unix.SetNonblock(nfd, false)
	return Handle(nfd), fromSockaddrUnix(sa, kind), nil
}

func sockSend(h Handle, buf []byte) (int, error) {
	return unix.Write(int(h), buf)
}

func sockRecv(h Handle, buf []byte) (int, error) {
	return unix.Read(int(h), buf)
}

func sockSetReuseAddr(h Handle) error {
	return unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

func sockSetIPv6Only(h Handle, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(int(h), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, v)
}

func sockSetNoDelay(h Handle, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(int(h), unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

func sockSetKeepAlive(h Handle, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_KEEPALIVE, v)
}

func sockSetBroadcast(h Handle, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_BROADCAST, v)
}

func sockSetRecvBuffer(h Handle, n int) error {
	return unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_RCVBUF, n)
}

func sockSetSendBuffer(h Handle, n int) error {
	return unix.SetsockoptInt(int(h), unix.SOL_SOCKET, unix.SO_SNDBUF, n)
}

func sockSetRecvTimeout(h Handle, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(int(h), unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

func sockSetSendTimeout(h Handle, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(int(h), unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv)
}

func sockPeerAddr(h Handle, kind Kind) (net.Addr, error) {
	sa, err := unix.Getpeername(int(h))
	if err != nil {
		return nil, err
	}
	return fromSockaddrUnix(sa, kind), nil
}

func sockLocalAddr(h Handle, kind Kind) (net.Addr, error) {
	sa, err := unix.Getsockname(int(h))
	if err != nil {
		return nil, err
	}
	return fromSockaddrUnix(sa, kind), nil
}

// toSockaddrUnix converts a resolved endpoint into the unix.Sockaddr that
// connect(2)/bind(2) expect. For a zoned IPv6 address it resolves the
// zone name to a numeric interface index and carries it as ZoneId — the
// scope-id reapplication called for by the link-local Open Question
// decision (see SPEC_FULL.md §13).
func toSockaddrUnix(ap netip.AddrPort) (unix.Sockaddr, error) {
	addr := ap.Addr()
	switch {
	case addr.Is4() || addr.Is4In6():
		return &unix.SockaddrInet4{Port: int(ap.Port()), Addr: addr.As4()}, nil
	case addr.Is6():
		var zoneID int
		if zone := addr.Zone(); zone != "" {
			iface, err := net.InterfaceByName(zone)
			if err != nil {
				return nil, &AddressError{Addr: ap.Addr().String(), Err: err}
			}
			zoneID = iface.Index
		}
		return &unix.SockaddrInet6{Port: int(ap.Port()), ZoneId: uint32(zoneID), Addr: addr.As16()}, nil
	default:
		return nil, &AddressError{Addr: ap.Addr().String(), Err: errAddressUnknownFamily}
	}
}

// fromSockaddrUnix converts a unix.Sockaddr (as returned by accept(2),
// getsockname(2), getpeername(2)) back into a [net.Addr] suitable for
// [GetIPFromStorage] and peer-IP capture.
func fromSockaddrUnix(sa unix.Sockaddr, kind Kind) net.Addr {
	var ip net.IP
	var port int
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip, port = net.IP(a.Addr[:]), a.Port
	case *unix.SockaddrInet6:
		ip, port = net.IP(a.Addr[:]), a.Port
	default:
		return nil
	}
	if kind == UDP {
		return &net.UDPAddr{IP: ip, Port: port}
	}
	return &net.TCPAddr{IP: ip, Port: port}
}
