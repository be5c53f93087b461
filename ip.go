// SPDX-License-Identifier: GPL-3.0-or-later

package netline

import (
	"errors"
	"net"
	"net/netip"
)

// errAddressUnknownFamily is wrapped by [*AddressError] when
// [GetIPFromStorage] is given an address of a family it does not recognize.
var errAddressUnknownFamily = errors.New("unknown address family")

// IsIPv6ValidAddress returns true iff s is a syntactically valid textual
// IPv6 address, including a zone-id suffix ("fe80::1%eth0"). This is purely
// lexical: no name resolution is performed.
func IsIPv6ValidAddress(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return false
	}
	return addr.Is6() || addr.Is4In6()
}

// NormalizeAddress canonicalises an IPv6 string per RFC 5952: lowercase hex
// digits, the longest run of zero groups collapsed into "::", no leading
// zeros within a group, zone-id preserved verbatim. Non-IPv6 input
// (including malformed input) is returned unchanged.
//
// NormalizeAddress is idempotent and IsIPv6ValidAddress is preserved by
// normalization: both properties follow from [netip.Addr.String] already
// producing the RFC 5952 canonical form.
func NormalizeAddress(s string) string {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is6() {
		return s
	}
	return addr.String()
}

// linkLocalPrefix is fe80::/10.
var linkLocalPrefix = netip.MustParsePrefix("fe80::/10")

// IsLinkLocal returns true iff s is an IPv6 address in fe80::/10.
func IsLinkLocal(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is6() {
		return false
	}
	return linkLocalPrefix.Contains(addr.WithZone(""))
}

// GetIPFromStorage extracts the printable IP from a generic socket address
// (whatever accept/getpeername produced on this platform, surfaced to Go
// code as a [net.Addr]). It fails with [*AddressError] if addr is nil or of
// a family this package does not understand.
func GetIPFromStorage(addr net.Addr) (string, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP.String(), nil
	case *net.UDPAddr:
		return a.IP.String(), nil
	case nil:
		return "", &AddressError{Err: errAddressUnknownFamily}
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return "", &AddressError{Addr: addr.String(), Err: errAddressUnknownFamily}
		}
		return host, nil
	}
}

// IsBroadcast returns true for IPv4 addresses that are broadcast-style:
// the limited broadcast address, the unspecified address, or any address
// whose final octet is 255.
func IsBroadcast(s string) bool {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return false
	}
	if addr == netip.IPv4Unspecified() {
		return true
	}
	b := addr.As4()
	return b[3] == 255
}

// zoneOf returns the zone-id of an IPv6 literal, or "" if s is not a
// zoned IPv6 address. Used by [*Line.ConnectClient] to strip the zone
// before resolution and reapply it as a numeric scope id when connecting.
func zoneOf(s string) string {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return ""
	}
	return addr.Zone()
}
