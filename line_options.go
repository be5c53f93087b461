//
// SPDX-License-Identifier: GPL-3.0-or-later
//

package netline

import (
	"log/slog"
	"time"
)

const (
	minReceiveBuffer = 512
	maxReceiveBuffer = 1048576
)

// EnableNoDelay sets TCP_NODELAY. A no-op on UDP Lines.
func (l *Line) EnableNoDelay() error {
	if l.Kind() != TCP {
		return nil
	}
	return l.setOption("enableNoDelay", func(h Handle) error { return sockSetNoDelay(h, true) })
}

// EnableKeepAlive sets SO_KEEPALIVE. A no-op on UDP Lines.
func (l *Line) EnableKeepAlive() error {
	if l.Kind() != TCP {
		return nil
	}
	return l.setOption("enableKeepAlive", func(h Handle) error { return sockSetKeepAlive(h, true) })
}

// EnableBroadcast sets SO_BROADCAST. A no-op on TCP Lines.
func (l *Line) EnableBroadcast() error {
	if l.Kind() != UDP {
		return nil
	}
	return l.setOption("enableBroadcast", func(h Handle) error { return sockSetBroadcast(h, true) })
}

// EnableIPv6Only sets IPV6_V6ONLY. A no-op unless Family is IPv6.
func (l *Line) EnableIPv6Only() error {
	if l.Family() != IPv6 {
		return nil
	}
	return l.setOption("enableIPv6Only", func(h Handle) error { return sockSetIPv6Only(h, true) })
}

// EnableReuseAddress sets SO_REUSEADDR.
func (l *Line) EnableReuseAddress() error {
	return l.setOption("enableReuseAddress", func(h Handle) error { return sockSetReuseAddr(h) })
}

// SetReceiveBuffer sets SO_RCVBUF, clamping n to [512, 1048576].
func (l *Line) SetReceiveBuffer(n int) error {
	n = clamp(n, minReceiveBuffer, maxReceiveBuffer)
	return l.setOption("setReceiveBuffer", func(h Handle) error { return sockSetRecvBuffer(h, n) })
}

// SetSendBuffer sets SO_SNDBUF.
//
// The source this package descends from set SO_RCVBUF here instead of
// SO_SNDBUF (a probable copy-paste bug); this implementation sets the
// correct option.
func (l *Line) SetSendBuffer(n int) error {
	return l.setOption("setSendBuffer", func(h Handle) error { return sockSetSendBuffer(h, n) })
}

// ReceiveTimeout returns the SO_RCVTIMEO value last set with
// [*Line.SetReceiveTimeout], or zero (no timeout) if never set.
func (l *Line) ReceiveTimeout() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recvTimeout
}

// SetReceiveTimeout sets SO_RCVTIMEO.
func (l *Line) SetReceiveTimeout(d time.Duration) error {
	err := l.setOption("setReceiveTimeout", func(h Handle) error { return sockSetRecvTimeout(h, d) })
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.recvTimeout = d
	l.mu.Unlock()
	return nil
}

// SendTimeout returns the SO_SNDTIMEO value last set with
// [*Line.SetSendTimeout], or zero (no timeout) if never set.
func (l *Line) SendTimeout() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sendTimeout
}

// SetSendTimeout sets SO_SNDTIMEO.
func (l *Line) SetSendTimeout(d time.Duration) error {
	err := l.setOption("setSendTimeout", func(h Handle) error { return sockSetSendTimeout(h, d) })
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.sendTimeout = d
	l.mu.Unlock()
	return nil
}

// setOption runs apply against the Line's handle, logging an Info-level
// event and wrapping any failure as [*IOError].
func (l *Line) setOption(name string, apply func(Handle) error) error {
	h := l.Handle()
	err := apply(h)

	l.logger.Info(name,
		slog.String("spanID", l.spanID),
		slog.Any("err", err),
		slog.String("errClass", l.cfg.ErrClassifier.Classify(err)),
		slog.Time("t", l.cfg.TimeNow()),
	)

	if err != nil {
		return &IOError{Op: name, Err: err, Class: l.cfg.ErrClassifier.Classify(err)}
	}
	return nil
}

func clamp(n, lo, hi int) int {
	switch {
	case n < lo:
		return lo
	case n > hi:
		return hi
	default:
		return n
	}
}
