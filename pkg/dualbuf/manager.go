package dualbuf

import (
	"sync"

	"xbuf/internal/xerr"
)

// Manager is the fixed-capacity open-buffer table spec.md §3/§5 describes:
// a process-global array where slot allocation happens under a brief lock
// and exhaustion is a hard failure, never retried. Handle is the slot
// index, mirroring spec.md's "handle: slot index into the open-buffer
// table" — callers that only need a *Buffer can ignore it and use the
// pointer Open/Manager.Open return directly.
type Manager struct {
	mu    sync.Mutex
	slots []*Buffer
}

// NewManager constructs a Manager with room for maxOpen simultaneously
// open buffers (spec.md §6 default: 10).
func NewManager(maxOpen int) *Manager {
	return &Manager{slots: make([]*Buffer, maxOpen)}
}

// Open opens a Buffer per opts and assigns it the first free slot. It
// fails with Resource if the table is full.
func (m *Manager) Open(opts Options) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, s := range m.slots {
		if s == nil {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, xerr.Resource("dualbuf: open-buffer table full (%d slots)", len(m.slots))
	}

	b, err := Open(opts)
	if err != nil {
		return nil, err
	}
	b.handle = idx
	m.slots[idx] = b
	return b, nil
}

// Close closes b and frees its slot. Fails with Invalid if b did not come
// from this Manager (or was already closed through it).
func (m *Manager) Close(b *Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.handle < 0 || b.handle >= len(m.slots) || m.slots[b.handle] != b {
		return xerr.Invalid("dualbuf: handle %d not open in this table", b.handle)
	}
	m.slots[b.handle] = nil
	return b.Close()
}

// Handle returns the buffer's slot index in the Manager that opened it,
// or -1 if it was opened directly via the package-level Open.
func (b *Buffer) Handle() int { return b.handle }
