//go:build windows

//
// SPDX-License-Identifier: GPL-3.0-or-later
//

package netline

import (
	"time"

	"golang.org/x/sys/windows"

	"github.com/netlinesuite/netline/internal/errclass"
)

// osReadable is the Windows backend for [Readable].
//
// Windows' native descriptor set (WSAFDSet/fd_set) is a length-prefixed
// array of SOCKET handles rather than a bitmap, so — unlike POSIX — there
// is no fixed-capacity cap to bypass; the original design's Windows branch
// allocates storage sized to the caller's handle set and copies the handle
// array in and the result array out. [windows.WSAPoll] already has exactly
// this shape (a caller-sized slice of poll descriptors), so this backend
// uses it directly instead of hand-rolling the legacy select(2) ABI.
func osReadable(handles []Handle, timeout time.Duration) ([]Handle, error) {
	pfds := make([]windows.WSAPollFD, len(handles))
	for i, h := range handles {
		pfds[i] = windows.WSAPollFD{
			Fd:     windows.Handle(h),
			Events: windows.POLLIN,
		}
	}

	timeoutMS := int32(timeout / time.Millisecond)
	n, err := windows.WSAPoll(pfds, timeoutMS)
	if err != nil {
		return nil, &IOError{Op: "WSAPoll", Err: err, Class: errclass.New(err)}
	}
	if n == 0 {
		return nil, nil
	}

	result := make([]Handle, 0, len(handles))
	for i, pfd := range pfds {
		if pfd.Revents&(windows.POLLIN|windows.POLLHUP|windows.POLLERR) != 0 {
			result = append(result, handles[i])
		}
	}
	return result, nil
}
