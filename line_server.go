//
// SPDX-License-Identifier: GPL-3.0-or-later
//

package netline

import (
	"log/slog"
	"net/netip"
)

// listenBacklog approximates the platform's SOMAXCONN across POSIX and
// Windows; both clamp an oversized backlog argument to their own ceiling,
// so a single generous constant is portable.
const listenBacklog = 4096

// BindServer resolves the wildcard address for the Line's Family and port,
// creates a socket, and binds it — additionally calling listen for a TCP
// Line — transitioning the Line to Active on success. UDP Lines are ready
// to Send/Recv immediately after bind; TCP Lines must be followed by a
// loop of [*Line.Accept] calls.
func (l *Line) BindServer(port uint16) error {
	t0 := l.cfg.TimeNow()
	l.logger.Info("bindStart",
		slog.String("spanID", l.spanID),
		slog.Int("port", int(port)),
		slog.Time("t", t0),
	)

	err := l.bindServer(port)

	l.logger.Info("bindDone",
		slog.String("spanID", l.spanID),
		slog.Any("err", err),
		slog.String("errClass", l.cfg.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", l.cfg.TimeNow()),
	)
	return err
}

func (l *Line) bindServer(port uint16) error {
	l.mu.Lock()
	kind, family := l.kind, l.family
	l.mu.Unlock()

	wildcard := netip.IPv4Unspecified()
	if family == IPv6 {
		wildcard = netip.IPv6Unspecified()
	}
	ap := netip.AddrPortFrom(wildcard, port)

	h, err := sockCreate(family, kind)
	if err != nil {
		return &IOError{Op: "socket", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
	}

	if family == IPv6 {
		if err := sockSetIPv6Only(h, true); err != nil {
			_ = sockClose(h)
			return &IOError{Op: "setsockopt(IPV6_V6ONLY)", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
		}
	}
	if err := sockSetReuseAddr(h); err != nil {
		_ = sockClose(h)
		return &IOError{Op: "setsockopt(SO_REUSEADDR)", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
	}
	if err := sockBind(h, ap); err != nil {
		_ = sockClose(h)
		return &IOError{Op: "bind", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
	}
	if kind == TCP {
		if err := sockListen(h, listenBacklog); err != nil {
			_ = sockClose(h)
			return &IOError{Op: "listen", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
		}
	}

	l.activate(h, anyAddress(family))
	return nil
}

// Accept accepts one pending connection on a TCP listener Line, returning a
// new, already-Active Line that owns the accepted handle and inherits Kind,
// Family, and the OnConnected/OnDisconnected callbacks of the listener.
// The new Line fires its own OnConnected before Accept returns.
//
// Accept on a UDP Line fails with [*ConfigError]: UDP has no connection to
// accept. A failed accept on a TCP listener wraps the cause in
// [*SilentAbort] without tearing down the listener, so the caller's
// accept loop can simply continue.
func (l *Line) Accept() (*Line, error) {
	l.mu.Lock()
	h, kind, family := l.handle, l.kind, l.family
	onConnected, onDisconnected := l.onConnected, l.onDisconnected
	l.mu.Unlock()

	if kind == UDP {
		return nil, &ConfigError{Reason: "UDP lines cannot accept"}
	}

	t0 := l.cfg.TimeNow()
	l.logger.Info("acceptStart",
		slog.String("spanID", l.spanID),
		slog.Time("t", t0),
	)

	nh, raddr, err := sockAccept(h, kind)

	l.logger.Info("acceptDone",
		slog.String("spanID", l.spanID),
		slog.Any("err", err),
		slog.String("errClass", l.cfg.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", l.cfg.TimeNow()),
	)
	if err != nil {
		return nil, &SilentAbort{Err: err}
	}

	child := NewLine(l.cfg, l.logger)
	child.kind = kind
	child.family = family
	child.onConnected = onConnected
	child.onDisconnected = onDisconnected

	peerIP := anyAddress(family)
	if ip, err := GetIPFromStorage(raddr); err == nil {
		peerIP = ip
	}
	child.activate(nh, peerIP)
	return child, nil
}
