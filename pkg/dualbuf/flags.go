package dualbuf

// Flags is the bit-set spec.md §3 calls out for DualBuffer: mode
// selectors, binary/packing/circular behavior switches, and the
// allocation/ISR bookkeeping bits. Kept as its own named type — separate
// from any open-flags type a caller-facing façade layers on top — per
// spec.md §9's "union-of-flag-bits becomes a named flag set type" note.
type Flags uint16

const (
	// ReadMode opens the buffer for reading.
	ReadMode Flags = 1 << iota
	// WriteMode opens the buffer for writing.
	WriteMode
	// ReadWrite opens the buffer for both reading and writing.
	ReadWrite
	// Append positions the write cursor at the end of initially-used data.
	Append
	// Binary disables the auto-CRLF injection PutC otherwise performs.
	Binary
	// Circular wraps read/write modulo capacity and disallows Seek/Compact.
	Circular
	// Packing makes Space attempt a Compact before reporting free bytes.
	Packing
	// Allocated marks that Open allocated the backing storage itself,
	// rather than adopting caller-supplied storage; Close only frees
	// storage it allocated.
	Allocated
	// InIsr routes the critical section through sched.Interrupt instead
	// of sched.Preemptive — set by callers that must never suspend.
	InIsr
	// UngetC names the pushed-back-byte state in the flag set. Buffer
	// tracks a pending unget in its own field and never sets this bit.
	UngetC
)

// Has reports whether all bits in want are set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }
