// Package sched provides the Scheduler capability spec.md's core consults
// only to suspend inside a blocking wait (§5), plus the two-variant
// exclusion guard §9 calls for: a mutex-backed guard for preemptible task
// context, and an interrupt-disable-flavored guard for code that must never
// suspend. Neither variant talks to real hardware here — there is no ISR to
// disable on a hosted Go process — but the shape matches what a bare-metal
// port would implement this capability against.
package sched

import (
	"sync"
	"time"
)

// yieldQuantum is the scheduler-yield increment spec.md §5 calls out:
// roughly 2ms per wake, re-checking the wait condition each time.
const yieldQuantum = 2 * time.Millisecond

// Scheduler is consulted by Stream's blocking overflow/underflow branches
// (SizedPool's lease acquire blocks on its slab semaphore and does not use
// it). Running reports whether a real
// scheduler is present; when false, Yield busy-waits for an equivalent
// duration instead of handing off to another task, matching the "busy
// delay of equivalent duration" fallback in spec.md §4.2.
type Scheduler interface {
	Yield()
	Running() bool
}

// Default is a goroutine-scheduler-backed Scheduler: Yield parks the
// calling goroutine for one quantum via time.Sleep, which is cooperative
// enough for Go's runtime scheduler to run other goroutines in the
// meantime. Running always reports true — under the Go runtime there is
// always a scheduler, unlike the bare-metal target this spec describes.
type Default struct{}

func (Default) Yield()        { time.Sleep(yieldQuantum) }
func (Default) Running() bool { return true }

// Guard is a scoped exclusion primitive. Release must be safe to call
// exactly once and must run on every exit path, including error returns —
// callers should acquire with a deferred Release immediately after taking
// the guard.
type Guard interface {
	Release()
}

// ExclusionGuard selects between the two critical-section strategies
// spec.md §5 and §9 describe for DualBuffer: Preemptive when called from
// ordinary task context, Interrupt when called from an ISR (or, here, from
// a caller that has asserted it cannot suspend — a dualbuf.Buffer opened
// with the InIsr flag).
type ExclusionGuard struct {
	mu    *sync.Mutex
	inIsr bool
}

// Preemptive acquires mu and returns a Guard that releases it.
func Preemptive(mu *sync.Mutex) Guard {
	mu.Lock()
	return &ExclusionGuard{mu: mu}
}

// Interrupt returns a no-op Guard for callers that have already asserted
// single-threaded ISR-equivalent access: there is no mutex to take because
// suspending to acquire one is exactly what must not happen from this
// context. The caller is responsible for ensuring no concurrent preemptive
// acquirer can run at the same time (on bare metal this is what disabling
// interrupts guarantees).
func Interrupt() Guard {
	return &ExclusionGuard{inIsr: true}
}

// Release unlocks the underlying mutex if this guard holds one; it is a
// no-op for an Interrupt-variant guard, and safe to call more than once.
func (g *ExclusionGuard) Release() {
	if g.mu != nil && !g.inIsr {
		g.mu.Unlock()
		g.mu = nil
	}
}
