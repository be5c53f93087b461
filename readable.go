// SPDX-License-Identifier: GPL-3.0-or-later

package netline

import "time"

// Readable blocks up to timeout waiting for any handle in handles to become
// readable — data available, peer closed, or (for a listener) a pending
// incoming connection — and returns the subset that is ready when it
// returns. A zero timeout performs a non-blocking poll. An empty handles
// slice returns nil immediately without touching the OS.
//
// The returned slice preserves the order of handles: the underlying OS
// readiness primitive gives no ordering guarantee among ready descriptors,
// so Readable imposes its own by scanning the input in order.
//
// On POSIX this bypasses the classical 1024-descriptor cap of the fixed
// FD_SETSIZE bitmap: osReadable sizes its own bitmap to the largest
// handle in the input rather than to FD_SETSIZE. See readable_unix.go.
func Readable(handles []Handle, timeout time.Duration) ([]Handle, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	return osReadable(handles, timeout)
}

// ReadableAny is a convenience: true iff Readable(handles, timeout) is
// non-empty.
func ReadableAny(handles []Handle, timeout time.Duration) (bool, error) {
	ready, err := Readable(handles, timeout)
	if err != nil {
		return false, err
	}
	return len(ready) > 0, nil
}
