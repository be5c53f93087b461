//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package netline

import (
	"log/slog"
	"net"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Line wraps exactly one OS socket handle and offers a uniform API for TCP
// and UDP, IPv4 and IPv6, across POSIX and Windows.
//
// A zero Line is not usable; construct with [NewLine]. A Line starts
// Inactive; [*Line.ConnectClient], [*Line.BindServer], or [*Line.Accept]
// (on a listener) transitions it to Active. [*Line.Close] transitions it
// back to Inactive exactly once, idempotently.
//
// Send and Recv may be called concurrently from different goroutines; the
// OS serializes them per direction. LastSent and LastReceived are safe to
// sample from any goroutine without a lock.
type Line struct {
	mu             sync.Mutex
	handle         Handle
	kind           Kind
	family         Family
	active         bool
	peerIP         string
	connectTimeout time.Duration
	recvTimeout    time.Duration
	sendTimeout    time.Duration

	lastSent     atomic.Int64
	lastReceived atomic.Int64

	dataObject     any
	onConnected    func(*Line)
	onDisconnected func(*Line)
	closeOnce      sync.Once

	cfg    *Config
	logger SLogger
	spanID string
}

// NewLine creates an inactive [Line] with the sentinel [Handle], Kind TCP,
// Family IPv4, and PeerIP "127.0.0.1" — the defaults §4.3 calls for.
//
// cfg supplies ConnectTimeout, the [ErrClassifier], and TimeNow; pass nil
// to use [NewConfig]'s defaults. logger receives *Start/*Done events for
// every syscall-boundary operation; pass nil to use [DefaultSLogger].
//
// The returned Line is finalized on garbage collection: an active handle
// is closed best-effort if the caller never calls [*Line.Close].
func NewLine(cfg *Config, logger SLogger) *Line {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = DefaultSLogger()
	}
	l := &Line{
		handle:         InvalidHandle,
		kind:           TCP,
		family:         IPv4,
		peerIP:         "127.0.0.1",
		connectTimeout: cfg.ConnectTimeout,
		cfg:            cfg,
		logger:         logger,
		spanID:         NewSpanID(),
	}
	runtime.SetFinalizer(l, (*Line).finalize)
	return l
}

// finalize is the best-effort, error-swallowing destructor run by the
// garbage collector on a Line that was never explicitly closed.
func (l *Line) finalize() {
	_ = l.Close()
}

// Handle returns the OS socket descriptor, or [InvalidHandle] if Inactive.
func (l *Line) Handle() Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.handle
}

// Kind returns the transport flavour.
func (l *Line) Kind() Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kind
}

// SetKind sets the transport flavour. Returns [*ConfigError] if the Line
// is active: Kind is immutable once a handle is owned.
func (l *Line) SetKind(k Kind) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return &ConfigError{Reason: "cannot change Kind on an active Line"}
	}
	l.kind = k
	return nil
}

// Family returns the address family.
func (l *Line) Family() Family {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.family
}

// SetFamily sets the address family. Returns [*ConfigError] if the Line is
// active: Family is immutable once a handle is owned.
func (l *Line) SetFamily(f Family) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		return &ConfigError{Reason: "cannot change Family on an active Line"}
	}
	l.family = f
	return nil
}

// Active reports whether the Line currently owns a live handle.
func (l *Line) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// PeerIP returns the printable remote address captured on connect/accept,
// or the family's any-address sentinel for UDP Lines.
func (l *Line) PeerIP() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peerIP
}

// LocalAddr returns the locally bound address, including the OS-assigned
// port when the Line was bound or connected from port 0.
func (l *Line) LocalAddr() (net.Addr, error) {
	l.mu.Lock()
	h, kind := l.handle, l.kind
	l.mu.Unlock()
	return sockLocalAddr(h, kind)
}

// DataObject returns the opaque, caller-owned value attached with
// [*Line.SetDataObject]. Line never dereferences it.
func (l *Line) DataObject() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dataObject
}

// SetDataObject attaches an opaque, caller-owned value to the Line.
func (l *Line) SetDataObject(v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dataObject = v
}

// SetOnConnected sets the callback fired exactly once per Active
// transition. Set it before the Line becomes active.
func (l *Line) SetOnConnected(f func(*Line)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onConnected = f
}

// SetOnDisconnected sets the callback fired exactly once per Inactive
// transition. Set it before the Line becomes active.
func (l *Line) SetOnDisconnected(f func(*Line)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onDisconnected = f
}

// ConnectTimeout returns the bound on [*Line.ConnectClient]'s non-blocking
// connect wait.
func (l *Line) ConnectTimeout() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connectTimeout
}

// SetConnectTimeout overrides the default (taken from [Config] at
// construction) bound on [*Line.ConnectClient]'s non-blocking connect wait.
func (l *Line) SetConnectTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connectTimeout = d
}

// LastSent returns the time of the most recent successful Send.
func (l *Line) LastSent() time.Time {
	return time.Unix(0, l.lastSent.Load())
}

// LastReceived returns the time of the most recent successful Recv.
func (l *Line) LastReceived() time.Time {
	return time.Unix(0, l.lastReceived.Load())
}

func (l *Line) touchSent(t time.Time) {
	l.lastSent.Store(t.UnixNano())
}

func (l *Line) touchReceived(t time.Time) {
	l.lastReceived.Store(t.UnixNano())
}

// activate transitions the Line to Active, recording the handle and peer
// IP, and fires OnConnected exactly once.
func (l *Line) activate(h Handle, peerIP string) {
	l.mu.Lock()
	l.handle = h
	l.active = true
	l.peerIP = peerIP
	l.mu.Unlock()
	l.fireConnected()
}

// fireConnected invokes OnConnected, suppressing any panic the callback
// raises, per the "callback exceptions are suppressed" propagation policy.
func (l *Line) fireConnected() {
	l.mu.Lock()
	cb := l.onConnected
	l.mu.Unlock()
	if cb == nil {
		return
	}
	defer func() { recover() }()
	cb(l)
}

// fireDisconnected invokes OnDisconnected, suppressing any panic.
func (l *Line) fireDisconnected() {
	l.mu.Lock()
	cb := l.onDisconnected
	l.mu.Unlock()
	if cb == nil {
		return
	}
	defer func() { recover() }()
	cb(l)
}

// Close releases the handle, transitioning the Line to Inactive and firing
// OnDisconnected exactly once. Close is idempotent: calls after the first
// are a no-op returning nil. Destruction-time closes (via the finalizer)
// go through the same path and swallow the underlying error.
func (l *Line) Close() (err error) {
	l.closeOnce.Do(func() {
		err = l.doClose()
	})
	return
}

func (l *Line) doClose() error {
	l.mu.Lock()
	h := l.handle
	wasActive := l.active
	l.active = false
	l.handle = InvalidHandle
	l.mu.Unlock()

	t0 := l.cfg.TimeNow()
	l.logger.Info("closeStart",
		slog.String("spanID", l.spanID),
		slog.Time("t", t0),
	)

	var err error
	if h != InvalidHandle {
		err = sockClose(h)
	}

	l.logger.Info("closeDone",
		slog.String("spanID", l.spanID),
		slog.Any("err", err),
		slog.String("errClass", l.cfg.ErrClassifier.Classify(err)),
		slog.Time("t0", t0),
		slog.Time("t", l.cfg.TimeNow()),
	)

	if wasActive {
		l.fireDisconnected()
	}
	return err
}

// selfClose implements the TCP data-path propagation policy: close the
// Line (idempotently, firing OnDisconnected at most once), then wrap cause
// in [*SilentAbort] so the caller's loop can recognize "the connection is
// gone, stop" without a noisy diagnostic.
func (l *Line) selfClose(cause error) error {
	_ = l.Close()
	return &SilentAbort{Err: cause}
}
