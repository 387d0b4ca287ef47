// Package xerr centralizes the error taxonomy shared by the pool, buffer,
// stream and history packages: distinguished sentinels for the conditions
// spec.md calls EndOfStream and Congestion, plus an Assert helper for the
// programmer-fault class that is only ever reached by a violated invariant.
package xerr

import (
	"errors"

	"github.com/gravitational/trace"
)

var (
	// ErrEndOfStream is returned by a read against an empty buffer/stream,
	// or a write against a full one under a non-blocking policy. It carries
	// the same meaning as io.EOF but is kept distinct so callers can't
	// confuse "no more data, ever" with "no data right now".
	ErrEndOfStream = errors.New("xbuf: end of stream")

	// ErrWouldBlock is the EAGAIN-equivalent: a non-blocking operation that
	// could not make progress without suspending the caller.
	ErrWouldBlock = errors.New("xbuf: would block")

	// ErrClosed names the closed-handle condition. No operation in this
	// module returns it; closed handles are not detected.
	ErrClosed = errors.New("xbuf: handle closed")
)

// Invalid wraps a trace.BadParameter for an argument out of its declared
// range: a bad size bound, an out-of-range handle, or a seek that asked for
// both read and write modes where only one is addressable.
func Invalid(format string, args ...any) error {
	return trace.BadParameter(format, args...)
}

// Resource wraps a trace.LimitExceeded for an exhausted fixed-size table:
// no free slot in the open-buffer table, or a slab allocation refusal.
func Resource(format string, args ...any) error {
	return trace.LimitExceeded(format, args...)
}

// Assert panics with a trace.BadParameter-wrapped message when a caller
// reaches a state that should be unreachable under the component's
// invariants (e.g. seeking past end after clamping, or a negative step).
// Assert is for programmer faults only — never for ordinary error paths.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(trace.BadParameter(format, args...))
	}
}
