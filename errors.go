// SPDX-License-Identifier: GPL-3.0-or-later

package netline

import "fmt"

// AddressError indicates a malformed host literal, an invalid IPv6 address,
// or a socket-address storage blob of unknown family.
type AddressError struct {
	// Addr is the offending textual address, if any.
	Addr string
	// Err is the underlying cause, if any.
	Err error
}

func (e *AddressError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("netline: invalid address %q: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("netline: invalid address %q", e.Addr)
}

func (e *AddressError) Unwrap() error { return e.Err }

// ResolveError indicates that resolving (host, port) to a concrete address
// failed.
type ResolveError struct {
	Host string
	Port uint16
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("netline: resolve %q:%d: %v", e.Host, e.Port, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// ConfigError indicates a caller-side misuse: a broadcast-style address
// given without broadcast enabled, or an attempt to mutate Kind/Family on
// an active Line.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("netline: configuration error: %s", e.Reason)
}

// ConnectError indicates that connect failed or timed out.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("netline: connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IOError indicates any other syscall failure: bind, listen, setsockopt,
// or a UDP send/recv failure. Class is the [ErrClassifier] label for Err.
type IOError struct {
	Op    string
	Err   error
	Class string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("netline: %s: %v [%s]", e.Op, e.Err, e.Class)
}

func (e *IOError) Unwrap() error { return e.Err }

// SilentAbort is the internal unwinding mechanism used to terminate a
// server-accept loop or a TCP connection loop without a diagnostic
// message. A TCP send/recv failure self-closes the Line and wraps the
// cause in a SilentAbort, which the caller's loop can treat as "stop, the
// peer is gone" rather than as a surprising error. An accept failure is
// also wrapped in a SilentAbort, but the listener Line stays active, so
// the accept loop can continue.
type SilentAbort struct {
	Err error
}

func (e *SilentAbort) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("netline: silent abort: %v", e.Err)
	}
	return "netline: silent abort"
}

func (e *SilentAbort) Unwrap() error { return e.Err }
