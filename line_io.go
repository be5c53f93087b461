//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/measurexlite/conn.go
//

package netline

import (
	"errors"
	"log/slog"
)

// errPeerClosed is the synthetic cause wrapped by [*SilentAbort] when a
// TCP Recv returns zero bytes with no OS error — the orderly peer-close
// case, which on this package's syscall façade is indistinguishable from
// "no error, nothing more to read" except by the zero-length read itself.
var errPeerClosed = errors.New("netline: peer closed the connection")

// Send writes buf to the peer.
//
// TCP: an OS error self-closes the Line (see [*Line.Close]) and returns
// the error wrapped in [*SilentAbort] — a TCP send failure implies the
// connection is broken. UDP: an OS error is returned as [*IOError] and the
// Line is left untouched, since a single bad datagram does not imply a
// broken "connection". On success, LastSent is updated.
func (l *Line) Send(buf []byte) (int, error) {
	l.mu.Lock()
	h, kind := l.handle, l.kind
	l.mu.Unlock()

	t0 := l.cfg.TimeNow()
	l.logger.Debug("sendStart",
		slog.String("spanID", l.spanID),
		slog.Int("ioBufferSize", len(buf)),
		slog.Time("t", t0),
	)

	n, err := sockSend(h, buf)

	l.logger.Debug("sendDone",
		slog.String("spanID", l.spanID),
		slog.Int("ioBytesCount", n),
		slog.Any("err", err),
		slog.String("errClass", l.cfg.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", l.cfg.TimeNow()),
	)

	if err != nil {
		if kind == TCP {
			return n, l.selfClose(err)
		}
		return n, &IOError{Op: "send", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
	}

	l.touchSent(l.cfg.TimeNow())
	return n, nil
}

// Recv reads up to len(buf) bytes from the peer into buf.
//
// TCP: a zero-length read (orderly peer close) or any OS error self-closes
// the Line and returns the cause wrapped in [*SilentAbort]. UDP: an OS
// error is returned as [*IOError] without touching the Line. On success,
// LastReceived is updated.
func (l *Line) Recv(buf []byte) (int, error) {
	l.mu.Lock()
	h, kind := l.handle, l.kind
	l.mu.Unlock()

	t0 := l.cfg.TimeNow()
	l.logger.Debug("recvStart",
		slog.String("spanID", l.spanID),
		slog.Int("ioBufferSize", len(buf)),
		slog.Time("t", t0),
	)

	n, err := sockRecv(h, buf)

	l.logger.Debug("recvDone",
		slog.String("spanID", l.spanID),
		slog.Int("ioBytesCount", n),
		slog.Any("err", err),
		slog.String("errClass", l.cfg.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", l.cfg.TimeNow()),
	)

	if kind == TCP && (err != nil || n == 0) {
		cause := err
		if cause == nil {
			cause = errPeerClosed
		}
		return n, l.selfClose(cause)
	}
	if err != nil {
		return n, &IOError{Op: "recv", Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
	}

	l.touchReceived(l.cfg.TimeNow())
	return n, nil
}
