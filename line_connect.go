//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
//

package netline

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ConnectClient resolves host and dials it, transitioning the Line to
// Active on success.
//
// host may be an IPv4 dotted literal, an IPv6 literal (optionally with a
// "%zone" suffix), "localhost", or a DNS name. broadcast must be true to
// connect to a broadcast-style IPv4 literal (255.255.255.255, 0.0.0.0, or
// any address whose final octet is 255); otherwise that combination fails
// with [*ConfigError] before any socket is created.
//
// On any failure between socket creation and the Active transition, the
// partially-created handle is closed before the error is returned.
func (l *Line) ConnectClient(host string, port uint16, broadcast bool) error {
	t0 := l.cfg.TimeNow()
	l.logger.Info("connectStart",
		slog.String("spanID", l.spanID),
		slog.String("host", host),
		slog.Int("port", int(port)),
		slog.Bool("broadcast", broadcast),
		slog.Time("t", t0),
	)

	err := l.connectClient(host, port, broadcast)

	l.logger.Info("connectDone",
		slog.String("spanID", l.spanID),
		slog.Any("err", err),
		slog.String("errClass", l.cfg.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", l.cfg.TimeNow()),
	)
	return err
}

func (l *Line) connectClient(host string, port uint16, broadcast bool) error {
	l.mu.Lock()
	kind, family := l.kind, l.family
	l.mu.Unlock()

	if family == IPv6 && strings.Contains(host, ":") && !IsIPv6ValidAddress(host) {
		return &AddressError{Addr: host}
	}
	if IsBroadcast(host) && !broadcast {
		return &ConfigError{Reason: fmt.Sprintf("%q is a broadcast-style address but broadcast was not requested", host)}
	}

	resolveHost := host
	if family == IPv4 && resolveHost == "localhost" {
		resolveHost = "127.0.0.1"
	}

	var zone string
	if family == IPv6 {
		resolveHost = NormalizeAddress(resolveHost)
		if IsLinkLocal(resolveHost) {
			zone = zoneOf(resolveHost)
			resolveHost = stripZone(resolveHost)
		}
	}

	addr, err := resolveOne(resolveHost, family)
	if err != nil {
		return &ResolveError{Host: host, Port: port, Err: err}
	}
	if zone != "" {
		addr = addr.WithZone(zone)
	}

	h, err := sockCreate(family, kind)
	if err != nil {
		return &ConnectError{Addr: addrString(host, port), Err: err}
	}
	if err := sockSetReuseAddr(h); err != nil {
		_ = sockClose(h)
		return &IOError{Op: "setsockopt(SO_REUSEADDR)", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
	}

	ap := netip.AddrPortFrom(addr, port)
	peerIP := anyAddress(family)

	switch {
	case kind == TCP:
		if err := l.dialTCP(h, ap); err != nil {
			_ = sockClose(h)
			return &ConnectError{Addr: ap.String(), Err: err}
		}
		if a, err := sockPeerAddr(h, kind); err == nil {
			if ip, err := GetIPFromStorage(a); err == nil {
				peerIP = ip
			}
		}
	case kind == UDP && family == IPv4 && !broadcast:
		if err := sockConnect(h, ap); err != nil {
			_ = sockClose(h)
			return &ConnectError{Addr: ap.String(), Err: err}
		}
	case kind == UDP && family == IPv4 && broadcast:
		if err := sockSetBroadcast(h, true); err != nil {
			_ = sockClose(h)
			return &IOError{Op: "setsockopt(SO_BROADCAST)", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
		}
	case kind == UDP && family == IPv6:
		// do not connect: unbound peer, per the documented link-local gap.
	}

	l.activate(h, peerIP)
	return nil
}

// dialTCP performs a non-blocking connect bounded by the Line's
// ConnectTimeout, resolving the "connect_timeout is advisory only" gap
// (§9) by actually enforcing it via a write-readiness wait instead of
// relying on the OS default.
func (l *Line) dialTCP(h Handle, ap netip.AddrPort) error {
	if err := sockSetNonblock(h, true); err != nil {
		return err
	}
	if err := sockConnect(h, ap); err != nil {
		return err
	}
	l.mu.Lock()
	timeout := l.connectTimeout
	l.mu.Unlock()
	if err := sockWaitConnect(h, timeout); err != nil {
		return err
	}
	return sockSetNonblock(h, false)
}

// resolveOne resolves host to a single address of the given family,
// preferring a literal-address parse over a DNS lookup.
func resolveOne(host string, family Family) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}
	ips, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return netip.Addr{}, err
	}
	want6 := family == IPv6
	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip.IP)
		if !ok {
			continue
		}
		addr = addr.Unmap()
		if addr.Is6() == want6 {
			return addr, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("no %s address found for %q", family, host)
}

// stripZone removes the zone-id suffix from an IPv6 literal, returning s
// unchanged if it carries none or is not a valid address.
func stripZone(s string) string {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return s
	}
	return addr.WithZone("").String()
}

// anyAddress is the family's any-address sentinel, used as PeerIP for UDP
// Lines per §3's invariant.
func anyAddress(family Family) string {
	if family == IPv6 {
		return "::"
	}
	return "0.0.0.0"
}

func addrString(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}
