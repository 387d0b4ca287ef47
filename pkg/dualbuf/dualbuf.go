// Package dualbuf implements the general-purpose dual-mode byte buffer of
// spec.md §4.1: a single buffer that is declared linear or circular at
// open time, with optional packing, auto-CRLF injection, and the usual
// seek/tell/compact surface. See SPEC_FULL.md §2 for the component map.
package dualbuf

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"xbuf/internal/sched"
	"xbuf/internal/xerr"
)

var log = logrus.WithField("component", "dualbuf")

// Mode selects which cursor an operation addresses.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeBoth
)

// Origin selects the reference point a Seek offset is relative to.
type Origin int

const (
	OriginSet Origin = iota
	OriginCur
	OriginEnd
)

// Options configures Open.
type Options struct {
	// Storage is caller-supplied backing storage. If nil, Open allocates
	// Size bytes itself and marks the buffer Allocated so Close frees it.
	Storage []byte
	// Size is the buffer capacity when Storage is nil. Ignored otherwise
	// (Storage's length is the capacity).
	Size int
	// Flags are the mode/behavior bits from this package's Flags type.
	Flags Flags
	// InitiallyUsed marks the first N bytes of Storage as already
	// readable (the write cursor starts at N instead of 0).
	InitiallyUsed int
}

// Buffer is one open dual-mode byte buffer.
type Buffer struct {
	mu sync.Mutex

	data  []byte
	read  int
	write int
	used  int
	flags Flags

	ungetActive bool
	handle      int
}

// MinSize and MaxSize are the allocation-time bounds spec.md §6 gives for
// DualBuffer: [64, 32768].
const (
	MinSize = 64
	MaxSize = 32768
)

// Open creates a Buffer per opts. If opts.Storage is nil, Open allocates
// opts.Size bytes, which must fall within [MinSize, MaxSize] — out of that
// range fails with Invalid. If opts.Storage is supplied, its length is the
// capacity regardless of opts.Size.
func Open(opts Options) (*Buffer, error) {
	var data []byte
	flags := opts.Flags

	if opts.Storage != nil {
		data = opts.Storage
	} else {
		if opts.Size < MinSize || opts.Size > MaxSize {
			return nil, xerr.Invalid("dualbuf: size %d out of range [%d, %d]", opts.Size, MinSize, MaxSize)
		}
		data = make([]byte, opts.Size)
		flags |= Allocated
	}

	if opts.InitiallyUsed < 0 || opts.InitiallyUsed > len(data) {
		return nil, xerr.Invalid("dualbuf: initially-used %d exceeds capacity %d", opts.InitiallyUsed, len(data))
	}

	b := &Buffer{
		data:   data,
		write:  opts.InitiallyUsed,
		used:   opts.InitiallyUsed,
		flags:  flags,
		handle: -1,
	}
	log.WithField("capacity", len(data)).WithField("circular", flags.Has(Circular)).Debug("buffer opened")
	return b, nil
}

// Close releases the buffer's storage if Open allocated it.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.flags.Has(Allocated) {
		b.data = nil
	}
	return nil
}

func (b *Buffer) capacity() int { return len(b.data) }

func (b *Buffer) guard() sched.Guard {
	if b.flags.Has(InIsr) {
		return sched.Interrupt()
	}
	return sched.Preemptive(&b.mu)
}

// Available returns the number of bytes currently readable.
func (b *Buffer) Available() int {
	g := b.guard()
	defer g.Release()
	return b.used
}

// Space returns the number of bytes currently writable. When Packing is
// set, Space attempts a Compact first so fragmented linear buffers report
// their true contiguous-plus-compactable capacity.
func (b *Buffer) Space() int {
	g := b.guard()
	defer g.Release()
	if b.flags.Has(Packing) && !b.flags.Has(Circular) && b.read > 0 {
		b.compactLocked()
	}
	return b.writeRoomLocked()
}

// writeRoomLocked returns the number of bytes that can be written without
// the write cursor crossing capacity. On a Circular buffer the write
// cursor wraps, so room is simply the unused byte count; on a linear
// buffer the write cursor never wraps, so room is bounded by how far it
// is from the end of the backing array regardless of how much has been
// read — only Compact (or fully draining to empty) reclaims room already
// passed over by write.
func (b *Buffer) writeRoomLocked() int {
	if b.flags.Has(Circular) {
		return b.capacity() - b.used
	}
	return b.capacity() - b.write
}

func (b *Buffer) full() bool  { return b.writeRoomLocked() == 0 }
func (b *Buffer) empty() bool { return b.used == 0 }

// putByteLocked writes one raw byte assuming the guard is already held and
// the buffer is known not to be full.
func (b *Buffer) putByteLocked(c byte) {
	b.data[b.write] = c
	if b.flags.Has(Circular) {
		b.write = (b.write + 1) % b.capacity()
	} else {
		b.write++
	}
	b.used++
}

// PutC writes one byte. In non-binary mode, writing a bare LF first
// injects a CR; the check that both bytes fit happens before either is
// written, so a failure leaves the buffer completely unmodified (spec.md
// §4.1 calls this out as the recommended, atomic behavior — see
// DESIGN.md for the Open Question this resolves).
func (b *Buffer) PutC(c byte) (byte, error) {
	g := b.guard()
	defer g.Release()

	if c == '\n' && !b.flags.Has(Binary) {
		if b.writeRoomLocked() < 2 {
			return 0, xerr.ErrEndOfStream
		}
		b.putByteLocked('\r')
		b.putByteLocked('\n')
		return c, nil
	}

	if b.full() {
		return 0, xerr.ErrEndOfStream
	}
	b.putByteLocked(c)
	return c, nil
}

// GetC reads and consumes one byte.
func (b *Buffer) GetC() (byte, error) {
	g := b.guard()
	defer g.Release()

	if b.ungetActive {
		b.ungetActive = false
	}
	if b.empty() {
		return 0, xerr.ErrEndOfStream
	}
	c := b.data[b.read]
	if b.flags.Has(Circular) {
		b.read = (b.read + 1) % b.capacity()
	} else {
		b.read++
	}
	b.used--

	if b.used == 0 && !b.flags.Has(Circular) {
		// Linear auto-reset (spec.md §4.1): both cursors snap to begin.
		b.read, b.write = 0, 0
	}
	return c, nil
}

// Peek returns the byte at the read cursor without consuming it.
func (b *Buffer) Peek() (byte, error) {
	g := b.guard()
	defer g.Release()
	if b.empty() {
		return 0, xerr.ErrEndOfStream
	}
	return b.data[b.read], nil
}

// UngetC pushes c back onto the read cursor so the next GetC returns it
// again. Only one pending unget is allowed at a time, and there must be
// room (used < capacity) to hold the pushed-back byte.
func (b *Buffer) UngetC(c byte) error {
	g := b.guard()
	defer g.Release()

	if b.ungetActive {
		return xerr.ErrWouldBlock
	}
	if b.used == b.capacity() {
		return xerr.ErrWouldBlock
	}

	if b.flags.Has(Circular) {
		b.read = (b.read - 1 + b.capacity()) % b.capacity()
	} else {
		if b.read == 0 {
			return xerr.ErrWouldBlock
		}
		b.read--
	}
	b.data[b.read] = c
	b.used++
	b.ungetActive = true
	return nil
}

// Write copies from src into the buffer, returning the number of bytes
// actually copied (which may be less than len(src) if the buffer fills).
// On a Circular buffer, Write always returns 0 without copying anything —
// circular mode only supports byte-at-a-time I/O via PutC/GetC.
func (b *Buffer) Write(src []byte) (int, error) {
	g := b.guard()
	defer g.Release()

	if b.flags.Has(Circular) {
		return 0, nil
	}

	free := b.writeRoomLocked()
	n := len(src)
	if n > free {
		n = free
	}
	copy(b.data[b.write:b.write+n], src[:n])
	b.write += n
	b.used += n
	return n, nil
}

// Read copies into dst from the buffer, returning the number of bytes
// actually copied. On a Circular buffer, Read always returns 0.
func (b *Buffer) Read(dst []byte) (int, error) {
	g := b.guard()
	defer g.Release()

	if b.flags.Has(Circular) {
		return 0, nil
	}

	n := len(dst)
	if n > b.used {
		n = b.used
	}
	copy(dst[:n], b.data[b.read:b.read+n])
	b.read += n
	b.used -= n
	if b.used == 0 {
		b.read, b.write = 0, 0
	}
	return n, nil
}

// Gets reads until LF, EndOfStream, or max-1 bytes, whichever comes
// first. In non-binary mode CR is silently dropped. The destination is
// always NUL-terminated. ok is false iff EndOfStream was reached before
// either a terminating LF or the size limit.
func (b *Buffer) Gets(dst []byte, max int) (n int, ok bool) {
	g := b.guard()
	defer g.Release()

	limit := max - 1
	for n < limit {
		if b.empty() {
			dst[n] = 0
			return n, false
		}
		c := b.data[b.read]
		if b.flags.Has(Circular) {
			b.read = (b.read + 1) % b.capacity()
		} else {
			b.read++
		}
		b.used--

		if c == '\r' && !b.flags.Has(Binary) {
			continue
		}
		if c == '\n' {
			dst[n] = c
			n++
			break
		}
		dst[n] = c
		n++
	}
	if b.used == 0 && !b.flags.Has(Circular) {
		b.read, b.write = 0, 0
	}
	dst[n] = 0
	return n, true
}

// Seek repositions the cursor(s) selected by mode. Fails with Invalid on a
// Circular buffer, or when mode is ModeBoth and the target would differ
// between the two (it never does here — both cursors move together).
// An out-of-[0,capacity] target is clamped; Assert then verifies the
// clamp produced an in-bounds result.
func (b *Buffer) Seek(offset int, origin Origin, mode Mode) error {
	g := b.guard()
	defer g.Release()

	if b.flags.Has(Circular) {
		return xerr.Invalid("dualbuf: seek not supported on a circular buffer")
	}

	var base int
	switch origin {
	case OriginSet:
		base = 0
	case OriginCur:
		switch mode {
		case ModeRead:
			base = b.read
		case ModeWrite:
			base = b.write
		default:
			base = b.read
		}
	case OriginEnd:
		base = b.capacity()
	default:
		return xerr.Invalid("dualbuf: unknown seek origin %d", origin)
	}

	target := base + offset
	if target < 0 {
		target = 0
	}
	if target > b.capacity() {
		target = b.capacity()
	}
	xerr.Assert(target >= 0 && target <= b.capacity(), "dualbuf: seek target out of bounds after clamp")

	switch mode {
	case ModeRead:
		b.read = target
	case ModeWrite:
		b.write = target
	case ModeBoth:
		b.read = target
		b.write = target
	default:
		return xerr.Invalid("dualbuf: unknown seek mode %d", mode)
	}

	used := b.write - b.read
	xerr.Assert(used >= 0, "dualbuf: seek produced read past write")
	b.used = used
	return nil
}

// Tell returns the offset of the cursor selected by mode. Fails on a
// Circular buffer, or if mode is ModeBoth (only one cursor at a time can
// be told).
func (b *Buffer) Tell(mode Mode) (int, error) {
	g := b.guard()
	defer g.Release()
	if b.flags.Has(Circular) {
		return 0, xerr.Invalid("dualbuf: tell not supported on a circular buffer")
	}
	switch mode {
	case ModeRead:
		return b.read, nil
	case ModeWrite:
		return b.write, nil
	default:
		return 0, xerr.Invalid("dualbuf: tell requires a single cursor, not both")
	}
}

// TellPointer returns a slice of the backing storage starting at the
// selected cursor — the idiomatic Go stand-in for the "pointer at cursor"
// spec.md describes (see SPEC_FULL.md / DESIGN.md on raw pointer
// elimination). Fails under the same conditions as Tell.
func (b *Buffer) TellPointer(mode Mode) ([]byte, error) {
	g := b.guard()
	defer g.Release()
	if b.flags.Has(Circular) {
		return nil, xerr.Invalid("dualbuf: tellPointer not supported on a circular buffer")
	}
	switch mode {
	case ModeRead:
		return b.data[b.read:], nil
	case ModeWrite:
		return b.data[b.write:], nil
	default:
		return nil, xerr.Invalid("dualbuf: tellPointer requires a single cursor, not both")
	}
}

// compactLocked moves live data [read, write) to the front of the backing
// array and zeroes the tail. Caller must hold the guard.
func (b *Buffer) compactLocked() {
	if b.read == 0 {
		return
	}
	n := copy(b.data, b.data[b.read:b.write])
	for i := n; i < len(b.data); i++ {
		b.data[i] = 0
	}
	b.read = 0
	b.write = n
}

// Compact moves live bytes to the front of the backing array, producing a
// contiguous free tail, and returns the writable space available after
// compaction. Fails on a Circular buffer or when Packing is not set.
func (b *Buffer) Compact() (int, error) {
	g := b.guard()
	defer g.Release()
	if b.flags.Has(Circular) {
		return 0, xerr.Invalid("dualbuf: compact not supported on a circular buffer")
	}
	if !b.flags.Has(Packing) {
		return 0, xerr.Invalid("dualbuf: compact requires the Packing flag")
	}
	b.compactLocked()
	return b.writeRoomLocked(), nil
}

// PrintClose writes the buffer's live bytes to w, then closes the buffer.
// It returns the number of bytes printed; printing is best-effort and
// never fails the close.
func (b *Buffer) PrintClose(w io.Writer) (int, error) {
	b.mu.Lock()
	n, _ := w.Write(b.liveBytesLocked())
	b.mu.Unlock()
	return n, b.Close()
}

// LogClose sends the buffer's contents to logrus at the given level, then
// closes the buffer.
func (b *Buffer) LogClose(level logrus.Level) error {
	b.mu.Lock()
	data := append([]byte(nil), b.liveBytesLocked()...)
	b.mu.Unlock()
	log.WithField("bytes", len(data)).Log(level, string(data))
	return b.Close()
}

func (b *Buffer) liveBytesLocked() []byte {
	if b.flags.Has(Circular) {
		out := make([]byte, 0, b.used)
		for i, n := b.read, 0; n < b.used; i, n = (i+1)%b.capacity(), n+1 {
			out = append(out, b.data[i])
		}
		return out
	}
	return b.data[b.read:b.write]
}

// writer adapts a Buffer's free tail to io.Writer for Printf.
type writer struct{ b *Buffer }

func (w writer) Write(p []byte) (int, error) {
	n, _ := w.b.Write(p)
	return n, nil
}

// Printf formats into the buffer's free tail, truncating rather than
// overflowing (supplemented from original_source/x_buffers.c — see
// SPEC_FULL.md §6). It returns the number of bytes actually written.
func (b *Buffer) Printf(format string, args ...any) int {
	n, _ := fmt.Fprintf(writer{b}, format, args...)
	return n
}
