// Package history implements the command-history ring of spec.md §4.3: a
// bounded ring of NUL-terminated records with append-with-eviction and
// bidirectional previous/next navigation. Built on the same bounded
// circular-index model as pkg/stream (spec.md describes HistoryRing as "a
// specialization of S with History set"); kept as an independent
// implementation rather than literally embedding *stream.Stream because
// the eviction and navigation algorithms operate at the record level, not
// the byte level stream's Read/Write work at — mirroring how
// original_source/hbuf.c is its own file, distinct from but parallel to
// the x_ubuf.c variants (see SPEC_FULL.md's package map).
package history

import (
	"github.com/sirupsen/logrus"

	"xbuf/internal/xerr"
)

var log = logrus.WithField("component", "history")

// DefaultCapacity is the HistoryRing size fixed in spec.md §6.
const DefaultCapacity = 1024

// Ring is one command-history store.
type Ring struct {
	buf  []byte
	size int

	idxWrite int // next byte to write
	idxNo1   int // start of the oldest record (first record's first byte)
	idxRead  int // navigation cursor (see Prev/Next)

	count int // number of complete records currently stored
}

// New constructs a Ring with the given capacity (spec.md default 1024).
func New(capacity int) (*Ring, error) {
	if capacity <= 1 {
		return nil, xerr.Invalid("history: capacity %d too small to hold any record", capacity)
	}
	return &Ring{
		buf:  make([]byte, capacity),
		size: capacity,
	}, nil
}

// Count returns the number of complete records currently stored.
func (r *Ring) Count() int { return r.count }

func (r *Ring) usedLocked() int {
	if r.count == 0 {
		return 0
	}
	if r.idxWrite == r.idxNo1 {
		// idxWrite caught back up to idxNo1: every byte in the ring is
		// live record data, not "nothing stored" (count > 0 here).
		return r.size
	}
	used := r.idxWrite - r.idxNo1
	if used < 0 {
		used += r.size
	}
	return used
}

// evictOldestLocked discards the single oldest complete record: it scans
// forward from idxNo1 over the record's non-NUL bytes, then steps past
// the terminating NUL, and decrements count. If the navigation cursor
// idxRead fell inside the evicted region, it is carried forward to the
// new idxNo1 (spec.md §4.3).
func (r *Ring) evictOldestLocked() {
	start := r.idxNo1
	i := start
	for r.buf[i] != 0 {
		i = (i + 1) % r.size
	}
	i = (i + 1) % r.size // step past the terminating NUL

	if r.cursorInRangeLocked(r.idxRead, start, i) {
		r.idxRead = i
	}

	r.idxNo1 = i
	r.count--
	log.Debug("evicted oldest record to make room")
}

// cursorInRangeLocked reports whether cursor lies in the half-open,
// possibly-wrapping range [start, end).
func (r *Ring) cursorInRangeLocked(cursor, start, end int) bool {
	if start <= end {
		return cursor >= start && cursor < end
	}
	return cursor >= start || cursor < end
}

// Add appends one NUL-terminated record. src must not contain an
// embedded NUL; n is len(src) and the stored record is src[0:n] followed
// by a single terminating NUL byte this method supplies. Records are
// evicted oldest-first until n+1 bytes are free. Fails with Invalid if
// n+1 exceeds the ring's total capacity (no amount of eviction can make
// room).
func (r *Ring) Add(src []byte) error {
	n := len(src)
	if n+1 > r.size {
		return xerr.Invalid("history: record of %d bytes (plus terminator) exceeds capacity %d", n, r.size)
	}

	for r.count > 0 && r.size-r.usedLocked() < n+1 {
		r.evictOldestLocked()
	}

	for i := 0; i < n; i++ {
		r.buf[r.idxWrite] = src[i]
		r.idxWrite = (r.idxWrite + 1) % r.size
	}
	r.buf[r.idxWrite] = 0
	r.idxWrite = (r.idxWrite + 1) % r.size
	r.count++

	if r.count == 1 {
		// first record in an otherwise-empty ring: idxNo1 starts the
		// record just written, and the navigation cursor tracks the
		// write head until Prv/Nxt moves it.
		r.idxNo1 = (r.idxWrite - n - 1 + r.size) % r.size
	}
	r.idxRead = r.idxWrite

	return nil
}

// copyRecordAt copies the record starting at start (up to but excluding
// its terminating NUL) into dst, which must have room for the whole
// record; it returns the index just past the terminating NUL.
func (r *Ring) copyRecordAt(start int, dst []byte) ([]byte, int) {
	out := dst[:0]
	i := start
	for r.buf[i] != 0 {
		out = append(out, r.buf[i])
		i = (i + 1) % r.size
	}
	return out, (i + 1) % r.size
}

// startOfRecordBefore scans backward from cursor (which must point one
// past a terminator, i.e. at the start of some record) to find the start
// of the previous record.
func (r *Ring) startOfRecordBefore(cursor int) int {
	// Step back over the terminator of the previous record.
	i := (cursor - 1 + r.size) % r.size
	// i now points at the previous record's terminating NUL (or, if we
	// wrapped onto the write head with no data there, this only runs
	// when count > 1 so a terminator is guaranteed to exist before i).
	i = (i - 1 + r.size) % r.size
	for r.buf[i] != 0 {
		i = (i - 1 + r.size) % r.size
	}
	return (i + 1) % r.size
}

// Prev copies the previous record into dst (sized at least the ring's
// capacity) and returns the slice of dst actually used. With only one
// record stored, Prev always returns that record. Once the cursor reaches
// the oldest record, the next Prev wraps to the newest (spec.md §8
// scenario 5) and resets the cursor to the idxWrite sentinel, so a
// following Next starts the forward walk over from the oldest record
// again rather than from the record the wrap happened to show.
func (r *Ring) Prev(dst []byte) ([]byte, error) {
	if r.count == 0 {
		return nil, xerr.ErrEndOfStream
	}
	if r.count == 1 {
		out, _ := r.copyRecordAt(r.idxNo1, dst)
		return out, nil
	}

	if r.idxRead == r.idxNo1 {
		start := r.startOfRecordBefore(r.idxWrite)
		out, _ := r.copyRecordAt(start, dst)
		r.idxRead = r.idxWrite
		return out, nil
	}

	start := r.startOfRecordBefore(r.idxRead)
	out, _ := r.copyRecordAt(start, dst)
	r.idxRead = start
	return out, nil
}

// Next copies the next record into dst and returns the slice of dst
// actually used. With only one record stored, Next always returns that
// record. The cursor sentinel idxWrite means "no forward navigation done
// yet (or Prev just wrapped)"; from there Next returns the oldest record
// directly rather than the one after it.
func (r *Ring) Next(dst []byte) ([]byte, error) {
	if r.count == 0 {
		return nil, xerr.ErrEndOfStream
	}
	if r.count == 1 {
		out, _ := r.copyRecordAt(r.idxNo1, dst)
		return out, nil
	}

	var start int
	if r.idxRead == r.idxWrite {
		start = r.idxNo1
	} else {
		// Advance past the record the cursor currently names to land on
		// the next one.
		_, start = r.copyRecordAt(r.idxRead, dst[:0])
	}
	out, _ := r.copyRecordAt(start, dst)
	r.idxRead = start
	return out, nil
}
