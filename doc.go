// SPDX-License-Identifier: GPL-3.0-or-later

// Package netline provides a cross-platform socket abstraction for TCP and
// UDP, IPv4 and IPv6, plus a readiness multiplexer that scales past the
// classical 1024-descriptor cap on POSIX.
//
// # Core Abstraction
//
// [Line] wraps exactly one OS socket handle and offers a uniform API on
// both Windows (Winsock2, via golang.org/x/sys/windows) and POSIX (BSD
// sockets, via golang.org/x/sys/unix): client connect, server bind/listen/
// accept, blocking send/recv, socket-option toggles, peer-address capture,
// and connect/disconnect notifications.
//
// [Readable] and [ReadableAny] multiplex readiness across an arbitrary set
// of [Handle] values with a millisecond timeout. On POSIX this builds an
// appropriately sized bitmap on every call instead of relying on the
// fixed FD_SETSIZE bitmap, so it is not capped at 1024 descriptors; on
// Windows it calls WSAPoll over a descriptor array sized to the input, so
// there is no cap to work around.
//
// # Lifecycle
//
// A [Line] starts Inactive. [NewLine] followed by [*Line.ConnectClient] or
// [*Line.BindServer] transitions it to Active, firing OnConnected. [*Line.Close]
// (explicit or via finalization on garbage collection) transitions it back to
// Inactive, firing OnDisconnected exactly once. [*Line.Accept] on a TCP
// listener produces a new, already-Active [Line] inheriting Kind, Family,
// and the callback hooks of the listener. A Line cannot re-enter Active
// after Close.
//
// TCP data-path failures (send/recv error, or recv returning zero bytes on
// orderly peer close) self-close the Line: the handle is released, the
// state flips to Inactive, OnDisconnected fires once, and the caller
// receives a [*SilentAbort] wrapping the underlying cause. UDP data-path
// failures propagate as [*IOError] without touching the handle, since a
// single bad datagram does not imply a broken "connection" — UDP has none.
//
// # Observability
//
// Connect, bind, accept, close, send and recv each log a *Start/*Done
// pair through [SLogger] (satisfied by [*slog.Logger]); each option setter
// logs a single event named after the setter. By default logging is a
// no-op, matching the convention of not writing to stdout/stderr unless
// explicitly configured. Lifecycle events (connect, bind, accept, close,
// option changes) log at Info; per-I/O events (send, recv) log at Debug.
// [Readable] and [ReadableAny] do not log. Each [Line] carries a
// [NewSpanID] (UUIDv7) included as the spanID attribute of every event it
// logs, so every event for one Line correlates under one spanID.
// [ErrClassifier] (default [DefaultErrClassifier], backed by
// internal/errclass) turns an error into a short portable class string
// (e.g. "ECONNRESET") included on every *Done event, on every option
// event, and on [*IOError].
//
// # Concurrency
//
// Send and recv may be called concurrently from different goroutines on
// the same Line; the OS serializes them per direction. LastSent and
// LastReceived are [atomic.Int64] ticks, safe to sample from any goroutine
// without a lock. Close may race with a blocked send/recv: the losing
// call observes an OS error and, for TCP, self-closes idempotently. There
// is no in-band cancellation token — the documented way to interrupt a
// blocked send/recv/accept from another goroutine is to Close the Line,
// which causes the blocked syscall to return an error.
//
// # Design Boundaries
//
// This package intentionally implements only the socket façade and its IP
// utilities. Serialization, compression, cryptography (including TLS),
// command dispatch, database transport, and protocol framing are out of
// scope: collaborators consume a [Line] only through construct, connect-or-
// bind-then-accept, Send/Recv byte buffers, OnConnected/OnDisconnected, and
// Close.
package netline
