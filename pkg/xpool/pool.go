// Package xpool implements the SizedPool of spec.md §2.1: three
// preallocated fixed-size scratch slabs (small/medium/large), each guarded
// by a binary semaphore so at most one lease is outstanding per slab at a
// time. Clients request a slab by upper-bound size; the pool hands back
// the smallest slab that fits, as an exclusive lease released by
// Lease.Release.
//
// Scratch slabs are for short-lived scratch work, not record storage; the
// other packages in this module own their backing arrays and do not lease
// from the pool.
package xpool

import (
	"github.com/sirupsen/logrus"

	"xbuf/internal/config"
	"xbuf/internal/xerr"
)

var log = logrus.WithField("component", "xpool")

// slab is one fixed-size scratch buffer and its binary semaphore.
type slab struct {
	buf []byte
	sem chan struct{} // capacity 1; held while leased
}

func newSlab(size int) *slab {
	return &slab{
		buf: make([]byte, size),
		sem: make(chan struct{}, 1),
	}
}

// Pool is the three-tier scratch slab allocator.
type Pool struct {
	small, medium, large *slab
}

// New constructs a Pool sized per cfg.
func New(cfg config.PoolConfig) *Pool {
	return &Pool{
		small:  newSlab(cfg.SmallSize),
		medium: newSlab(cfg.MediumSize),
		large:  newSlab(cfg.LargeSize),
	}
}

// Lease is an exclusive hold on one slab, returned by Acquire.
type Lease struct {
	slab *slab
	buf  []byte
}

// Bytes returns the leased scratch buffer, truncated to the size that was
// requested at Acquire (the underlying slab may be larger).
func (l *Lease) Bytes() []byte { return l.buf }

// Release returns the slab to the pool. Calls after the first are no-ops.
func (l *Lease) Release() {
	if l.slab == nil {
		return
	}
	<-l.slab.sem
	l.slab = nil
}

// Acquire blocks until the smallest slab able to hold upperBound bytes is
// free, then returns an exclusive Lease over it. Acquire blocks
// indefinitely — per spec.md §5 there is no timeout on this wait — so
// callers on a request path that cannot tolerate stalling should pick a
// slab tier they know is rarely contended.
func (p *Pool) Acquire(upperBound int) (*Lease, error) {
	s := p.pick(upperBound)
	if s == nil {
		return nil, xerr.Invalid("xpool: no slab large enough for %d bytes", upperBound)
	}
	s.sem <- struct{}{}
	log.WithField("size", len(s.buf)).Debug("slab leased")
	return &Lease{slab: s, buf: s.buf[:upperBound]}, nil
}

// TryAcquire is the non-blocking variant: it returns xerr.ErrWouldBlock
// immediately instead of waiting for the slab's semaphore.
func (p *Pool) TryAcquire(upperBound int) (*Lease, error) {
	s := p.pick(upperBound)
	if s == nil {
		return nil, xerr.Invalid("xpool: no slab large enough for %d bytes", upperBound)
	}
	select {
	case s.sem <- struct{}{}:
		return &Lease{slab: s, buf: s.buf[:upperBound]}, nil
	default:
		return nil, xerr.ErrWouldBlock
	}
}

func (p *Pool) pick(upperBound int) *slab {
	switch {
	case upperBound <= len(p.small.buf):
		return p.small
	case upperBound <= len(p.medium.buf):
		return p.medium
	case upperBound <= len(p.large.buf):
		return p.large
	default:
		return nil
	}
}
