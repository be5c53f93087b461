//
// SPDX-License-Identifier: GPL-3.0-or-later
//

// Package errclass classifies network errors into short, platform-independent
// strings suitable for structured logging and metrics.
//
// The platform-specific errno constants live in unix.go and windows.go, each
// gated by a build tag and each importing the platform's own syscall package
// (golang.org/x/sys/unix or golang.org/x/sys/windows). New maps a Go error
// down to one of these classes regardless of which OS produced it.
package errclass

import (
	"context"
	"errors"
	"syscall"
)

// Error classes. Unknown errors classify as EGENERIC rather than panicking
// or returning the empty string, so callers always get a usable label.
const (
	EADDRNOTAVAIL   = "EADDRNOTAVAIL"
	EADDRINUSE      = "EADDRINUSE"
	ECONNABORTED    = "ECONNABORTED"
	ECONNREFUSED    = "ECONNREFUSED"
	ECONNRESET      = "ECONNRESET"
	EHOSTUNREACH    = "EHOSTUNREACH"
	EINVAL          = "EINVAL"
	EINTR           = "EINTR"
	ENETDOWN        = "ENETDOWN"
	ENETUNREACH     = "ENETUNREACH"
	ENOBUFS         = "ENOBUFS"
	ENOTCONN        = "ENOTCONN"
	EPROTONOSUPPORT = "EPROTONOSUPPORT"
	ETIMEDOUT       = "ETIMEDOUT"
	EGENERIC        = "EGENERIC"
)

// New classifies err into one of the constants above.
//
// A nil error classifies as the empty string, matching the convention used
// by every call site in this module (callers log errClass unconditionally,
// including on success).
func New(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ETIMEDOUT
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case errEADDRNOTAVAIL:
			return EADDRNOTAVAIL
		case errEADDRINUSE:
			return EADDRINUSE
		case errECONNABORTED:
			return ECONNABORTED
		case errECONNREFUSED:
			return ECONNREFUSED
		case errECONNRESET:
			return ECONNRESET
		case errEHOSTUNREACH:
			return EHOSTUNREACH
		case errEINVAL:
			return EINVAL
		case errEINTR:
			return EINTR
		case errENETDOWN:
			return ENETDOWN
		case errENETUNREACH:
			return ENETUNREACH
		case errENOBUFS:
			return ENOBUFS
		case errENOTCONN:
			return ENOTCONN
		case errEPROTONOSUPPORT:
			return EPROTONOSUPPORT
		case errETIMEDOUT:
			return ETIMEDOUT
		}
	}

	return EGENERIC
}
