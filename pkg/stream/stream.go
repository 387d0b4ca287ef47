// Package stream implements the blocking circular byte stream of
// spec.md §4.2: a bounded FIFO with three overflow policies (blocking,
// non-blocking, truncate-oldest), plus the at-most-3-descriptor façade of
// §6 built in facade.go. The blocking wait loop is grounded on the
// teacher's internal/control/monitor.go ticker loop — poll on an
// interval and re-check the condition; the wait has no cancellation.
package stream

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"xbuf/internal/config"
	"xbuf/internal/sched"
	"xbuf/internal/xerr"
)

var log = logrus.WithField("component", "stream")

// MinSize and MaxSize are the Stream capacity bounds from spec.md §6.
const (
	MinSize = 32
	MaxSize = 16384
)

// Options configures New.
type Options struct {
	// Storage is caller-supplied backing storage; if nil, Size bytes are
	// allocated.
	Storage []byte
	Size    int
	Flags   OpenFlags
	// NoLock disables the internal mutex for callers that can assert
	// single-threaded access (spec.md §3's "mux ... may be absent iff
	// NoLock flag set").
	NoLock bool
	// Scheduler overrides the default goroutine-backed scheduler; tests
	// can inject a fake to make blocking waits deterministic.
	Scheduler sched.Scheduler
}

// Stream is one open blocking circular byte stream.
type Stream struct {
	buf   []byte
	size  int
	read  int
	write int
	used  int

	mux    *sync.Mutex
	noLock bool

	openFlags OpenFlags
	sched     sched.Scheduler

	handle int
}

// New creates a Stream per opts.
func New(opts Options) (*Stream, error) {
	var buf []byte
	if opts.Storage != nil {
		buf = opts.Storage
	} else {
		size := opts.Size
		if size == 0 {
			size = config.DefaultConfig().Stream.DefaultSize
		}
		if size < MinSize || size > MaxSize {
			return nil, xerr.Invalid("stream: size %d out of range [%d, %d]", size, MinSize, MaxSize)
		}
		buf = make([]byte, size)
	}

	s := &Stream{
		buf:       buf,
		size:      len(buf),
		openFlags: opts.Flags,
		noLock:    opts.NoLock,
		handle:    -1,
	}
	if !opts.NoLock {
		s.mux = &sync.Mutex{}
	}
	if opts.Scheduler != nil {
		s.sched = opts.Scheduler
	} else {
		s.sched = sched.Default{}
	}

	log.WithField("size", s.size).WithField("noLock", opts.NoLock).Debug("stream opened")
	return s, nil
}

func (s *Stream) lock() {
	if !s.noLock {
		s.mux.Lock()
	}
}

func (s *Stream) unlock() {
	if !s.noLock {
		s.mux.Unlock()
	}
}

func (s *Stream) free() int { return s.size - s.used }

// Len returns the number of bytes currently buffered.
func (s *Stream) Len() int {
	s.lock()
	defer s.unlock()
	return s.used
}

// Free returns the number of bytes of free space currently available.
func (s *Stream) Free() int {
	s.lock()
	defer s.unlock()
	return s.free()
}

// resetIfEmptyLocked snaps both indices to 0 once the stream drains —
// spec.md §4.2: "Emptying the stream causes both indices to reset to 0."
func (s *Stream) resetIfEmptyLocked() {
	if s.used == 0 {
		s.read, s.write = 0, 0
	}
}

// makeRoomLocked implements the three write-overflow policies of
// spec.md §4.2 for a pending write of size n. It returns the number of
// bytes the caller may now write (n itself under Truncate/blocking
// success, or less than n under NonBlock congestion).
func (s *Stream) makeRoomLocked(n int) (int, error) {
	if s.free() >= n {
		return n, nil
	}

	switch {
	case s.openFlags.has(Truncate):
		deficit := n - s.free()
		s.read = (s.read + deficit) % s.size
		s.used -= deficit
		log.WithField("discarded", deficit).Debug("truncating oldest bytes to admit write")
		return n, nil

	case s.openFlags.has(NonBlock):
		avail := s.free()
		log.Debug("write congestion, non-blocking policy")
		return avail, xerr.ErrWouldBlock

	default:
		for s.free() < n {
			s.unlock()
			s.sched.Yield()
			s.lock()
		}
		return n, nil
	}
}

// waitForDataLocked blocks (or, under NonBlock, fails immediately) until
// at least one byte is available to read.
func (s *Stream) waitForDataLocked() error {
	if s.used > 0 {
		return nil
	}
	if s.openFlags.has(NonBlock) {
		return xerr.ErrEndOfStream
	}
	for s.used == 0 {
		s.unlock()
		s.sched.Yield()
		s.lock()
	}
	return nil
}

// PutC writes one byte under the configured overflow policy. As with
// DualBuffer, a bare LF in non-binary mode is preceded by an injected CR;
// the overflow policy is consulted once for both bytes so the pair is
// admitted (or truncated/blocked for) atomically.
func (s *Stream) PutC(c byte) error {
	s.lock()
	defer s.unlock()

	if c == '\n' && !s.openFlags.has(Binary) {
		if _, err := s.makeRoomLocked(2); err != nil {
			return err
		}
		s.buf[s.write] = '\r'
		s.write = (s.write + 1) % s.size
		s.buf[s.write] = '\n'
		s.write = (s.write + 1) % s.size
		s.used += 2
		return nil
	}

	if _, err := s.makeRoomLocked(1); err != nil {
		return err
	}
	s.buf[s.write] = c
	s.write = (s.write + 1) % s.size
	s.used++
	return nil
}

// GetC reads and consumes one byte under the configured underflow policy.
func (s *Stream) GetC() (byte, error) {
	s.lock()
	defer s.unlock()

	if err := s.waitForDataLocked(); err != nil {
		return 0, err
	}
	c := s.buf[s.read]
	s.read = (s.read + 1) % s.size
	s.used--
	s.resetIfEmptyLocked()
	return c, nil
}

// Write appends data under the configured overflow policy. Under
// NonBlock with insufficient free space, it writes as many bytes as fit
// (possibly zero) and returns xerr.ErrWouldBlock alongside that count.
func (s *Stream) Write(data []byte) (int, error) {
	s.lock()
	defer s.unlock()

	n, err := s.makeRoomLocked(len(data))
	if err != nil && n == 0 {
		return 0, err
	}
	for i := 0; i < n; i++ {
		s.buf[s.write] = data[i]
		s.write = (s.write + 1) % s.size
	}
	s.used += n
	return n, err
}

// Read fills dst under the configured underflow policy, returning the
// number of bytes actually read.
func (s *Stream) Read(dst []byte) (int, error) {
	s.lock()
	defer s.unlock()

	if err := s.waitForDataLocked(); err != nil {
		return 0, err
	}
	n := len(dst)
	if n > s.used {
		n = s.used
	}
	for i := 0; i < n; i++ {
		dst[i] = s.buf[s.read]
		s.read = (s.read + 1) % s.size
	}
	s.used -= n
	s.resetIfEmptyLocked()
	return n, nil
}

// ReadTimeout is the bounded-wait read supplemented from
// original_source/x_ubuf.c (see SPEC_FULL.md §6): it behaves like Read,
// but gives up with xerr.ErrWouldBlock if the deadline elapses before any
// byte becomes available. It does not affect Read's own unconditional
// blocking contract.
func (s *Stream) ReadTimeout(dst []byte, d time.Duration) (int, error) {
	deadline := time.Now().Add(d)
	s.lock()
	for s.used == 0 {
		if !time.Now().Before(deadline) {
			s.unlock()
			return 0, xerr.ErrWouldBlock
		}
		s.unlock()
		s.sched.Yield()
		s.lock()
	}
	n := len(dst)
	if n > s.used {
		n = s.used
	}
	for i := 0; i < n; i++ {
		dst[i] = s.buf[s.read]
		s.read = (s.read + 1) % s.size
	}
	s.used -= n
	s.resetIfEmptyLocked()
	s.unlock()
	return n, nil
}

// Gets reads until LF or NUL is consumed (the terminator itself is not
// stored), filtering CR, and always NUL-terminates dst. ok is false iff
// EndOfStream was reached before a terminator.
func (s *Stream) Gets(dst []byte) (n int, ok bool) {
	s.lock()
	defer s.unlock()

	limit := len(dst) - 1
	for n < limit {
		if err := s.waitForDataLocked(); err != nil {
			dst[n] = 0
			return n, false
		}
		c := s.buf[s.read]
		s.read = (s.read + 1) % s.size
		s.used--

		if c == '\r' {
			continue
		}
		if c == '\n' || c == 0 {
			break
		}
		dst[n] = c
		n++
	}
	s.resetIfEmptyLocked()
	dst[n] = 0
	return n, true
}

// EmptyBlock drains the stream via handler in at most two calls, handling
// the wraparound case in one pass each. Per spec.md §9's resolved Open
// Question (see DESIGN.md), handler is expected to consume everything it
// is given in one call; a short write is treated as a hard error and
// aborts the drain without advancing past what was actually consumed.
type Handler func(p []byte) (int, error)

func (s *Stream) EmptyBlock(handler Handler) error {
	s.lock()
	defer s.unlock()

	if s.read >= s.write && s.used > 0 {
		chunk := s.buf[s.read:s.size]
		n, err := handler(chunk)
		if err != nil {
			return err
		}
		if n != len(chunk) {
			return xerr.Invalid("stream: emptyBlock handler short-wrote %d of %d bytes", n, len(chunk))
		}
		s.used -= n
		s.read = 0
	}
	if s.used > 0 {
		chunk := s.buf[s.read:s.write]
		n, err := handler(chunk)
		if err != nil {
			return err
		}
		if n != len(chunk) {
			return xerr.Invalid("stream: emptyBlock handler short-wrote %d of %d bytes", n, len(chunk))
		}
		s.used = 0
		s.write = 0
	}
	s.read, s.write = 0, 0
	return nil
}

// Handle returns the stream's slot index in the Table that opened it, or
// -1 if it was constructed directly via New.
func (s *Stream) Handle() int { return s.handle }
