package stream

// OpenFlags are the façade-level behavior switches from spec.md §6.
type OpenFlags uint8

const (
	// NonBlock makes Write report xerr.ErrWouldBlock and Read report
	// xerr.ErrEndOfStream instead of suspending.
	NonBlock OpenFlags = 1 << iota
	// Truncate makes Write evict oldest bytes instead of blocking.
	Truncate
	// Binary disables CR injection ahead of a bare LF in PutC.
	Binary
	// ReadMode, WriteMode, ReadWrite mirror dualbuf's mode selectors for
	// callers that open a Stream through the same Options shape.
	ReadMode
	WriteMode
	ReadWrite
)

func (f OpenFlags) has(want OpenFlags) bool { return f&want == want }
