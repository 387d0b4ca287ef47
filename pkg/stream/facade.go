package stream

import (
	"sync"

	"xbuf/internal/xerr"
)

// MaxOpenFds is the façade's descriptor table size from spec.md §6: at
// most 3 simultaneously open streams.
const MaxOpenFds = 3

// IoctlPtrCntl mirrors spec.md §6's I_PTR_CNTL request: it stores the
// slot's *Stream in the caller's out-pointer. Any other request fails.
const IoctlPtrCntl = 1

// Table is the fixed-array, file-descriptor-style façade of spec.md §6:
// registered at a mount path, addressable by small integer descriptors.
type Table struct {
	mu        sync.Mutex
	mountPath string
	slots     [MaxOpenFds]*Stream
}

// NewTable constructs a Table registered at mountPath (spec.md default
// "/ubuf").
func NewTable(mountPath string) *Table {
	return &Table{mountPath: mountPath}
}

// Open finds the first unused descriptor, allocates a size-byte backing
// stream with the given flags, and returns its descriptor. path must
// start with "/"; size must fall within [MinSize, MaxSize]. Fails with
// Resource (ENFILE-equivalent) if no descriptor is free.
func (t *Table) Open(path string, flags OpenFlags, size int) (int, error) {
	if len(path) == 0 || path[0] != '/' {
		return -1, xerr.Invalid("stream: path %q must be absolute", path)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fd := -1
	for i, s := range t.slots {
		if s == nil {
			fd = i
			break
		}
	}
	if fd == -1 {
		return -1, xerr.Resource("stream: no free descriptor (max %d open)", MaxOpenFds)
	}

	s, err := New(Options{Size: size, Flags: flags})
	if err != nil {
		return -1, err
	}
	s.handle = fd
	t.slots[fd] = s
	return fd, nil
}

// Close frees the backing stream for fd. Fails with Invalid (EBADF) on an
// out-of-range or already-closed descriptor.
func (t *Table) Close(fd int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookupLocked(fd)
	if err != nil {
		return err
	}
	t.slots[fd] = nil
	s.handle = -1
	return nil
}

// Read delegates to the stream at fd.
func (t *Table) Read(fd int, dst []byte) (int, error) {
	s, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}
	return s.Read(dst)
}

// Write delegates to the stream at fd.
func (t *Table) Write(fd int, src []byte) (int, error) {
	s, err := t.lookup(fd)
	if err != nil {
		return 0, err
	}
	return s.Write(src)
}

// Ioctl implements the single recognized request, IoctlPtrCntl, which
// hands back the *Stream backing fd. Any other request fails and is
// logged at error severity (spec.md §6).
func (t *Table) Ioctl(fd int, request int) (*Stream, error) {
	s, err := t.lookup(fd)
	if err != nil {
		return nil, err
	}
	if request != IoctlPtrCntl {
		log.WithField("fd", fd).WithField("request", request).Error("unsupported ioctl request")
		return nil, xerr.Invalid("stream: unsupported ioctl request %d", request)
	}
	return s, nil
}

func (t *Table) lookup(fd int) (*Stream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookupLocked(fd)
}

func (t *Table) lookupLocked(fd int) (*Stream, error) {
	if fd < 0 || fd >= MaxOpenFds || t.slots[fd] == nil {
		return nil, xerr.Invalid("stream: bad descriptor %d", fd)
	}
	return t.slots[fd], nil
}
