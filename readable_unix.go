//go:build linux || darwin

//
// SPDX-License-Identifier: GPL-3.0-or-later
//

package netline

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/netlinesuite/netline/internal/errclass"
)

// bitsPerWord is the word width select(2) expects its fd_set bitmap to be
// built from: one bit per descriptor, packed into machine words.
const bitsPerWord = 64

// osReadable is the POSIX backend for [Readable].
//
// The platform's native fd_set is a fixed-size bitmap capped at
// FD_SETSIZE (1024) descriptors, because [unix.FdSet] is a fixed [16]int64
// array. To scale past that cap this function builds its own bitmap sized
// to the largest handle actually present in handles — exactly the
// construction the original design calls the core's "key algorithmic
// contribution" — and invokes the select(2) syscall directly with an nfds
// argument sized to the bitmap rather than to FD_SETSIZE, bypassing the
// [unix.FdSet] type entirely.
//
// This targets architectures where select(2) is available as a direct
// syscall (linux/{386,amd64,arm}, darwin); architectures that only expose
// pselect6 (e.g. linux/arm64) are a documented gap, in the spirit of the
// zone-id and Windows-DLL-floor gaps already documented elsewhere in this
// package.
func osReadable(handles []Handle, timeout time.Duration) ([]Handle, error) {
	var maxFD Handle
	for _, h := range handles {
		if h > maxFD {
			maxFD = h
		}
	}

	wordCount := int(maxFD)/bitsPerWord + 1
	bitmap := make([]uint64, wordCount)
	for _, h := range handles {
		bitmap[int(h)/bitsPerWord] |= 1 << (uint(h) % bitsPerWord)
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	nfds := wordCount * bitsPerWord

	_, _, errno := unix.Syscall6(
		unix.SYS_SELECT,
		uintptr(nfds),
		uintptr(unsafe.Pointer(&bitmap[0])),
		0,
		0,
		uintptr(unsafe.Pointer(&tv)),
		0,
	)
	if errno != 0 {
		return nil, &IOError{Op: "select", Err: errno, Class: errclass.New(errno)}
	}

	result := make([]Handle, 0, len(handles))
	for _, h := range handles {
		word := bitmap[int(h)/bitsPerWord]
		if word&(1<<(uint(h)%bitsPerWord)) != 0 {
			result = append(result, h)
		}
	}
	return result, nil
}
