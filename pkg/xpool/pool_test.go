package xpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xbuf/internal/config"
	"xbuf/internal/xerr"
)

func testPool() *Pool {
	return New(config.PoolConfig{SmallSize: 64, MediumSize: 128, LargeSize: 256})
}

func TestAcquirePicksSmallestFittingTier(t *testing.T) {
	p := testPool()

	small, err := p.Acquire(10)
	require.NoError(t, err)
	require.Len(t, small.Bytes(), 10)
	small.Release()

	medium, err := p.Acquire(100)
	require.NoError(t, err)
	require.Len(t, medium.Bytes(), 100)
	medium.Release()

	large, err := p.Acquire(200)
	require.NoError(t, err)
	require.Len(t, large.Bytes(), 200)
	large.Release()
}

func TestAcquireRejectsOversizedRequest(t *testing.T) {
	p := testPool()
	_, err := p.Acquire(1000)
	require.Error(t, err)
}

func TestTryAcquireFailsWhenSlabHeld(t *testing.T) {
	p := testPool()

	l1, err := p.TryAcquire(10)
	require.NoError(t, err)

	_, err = p.TryAcquire(20)
	require.ErrorIs(t, err, xerr.ErrWouldBlock)

	l1.Release()

	l2, err := p.TryAcquire(20)
	require.NoError(t, err)
	l2.Release()
}

func TestAcquireBlocksUntilReleased(t *testing.T) {
	p := testPool()
	l1, err := p.Acquire(10)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		l2, err := p.Acquire(10)
		require.NoError(t, err)
		l2.Release()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second Acquire returned before the first lease was released")
	case <-time.After(20 * time.Millisecond):
	}

	l1.Release()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Acquire never unblocked after release")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := testPool()
	l, err := p.Acquire(10)
	require.NoError(t, err)
	l.Release()
	require.NotPanics(t, func() { l.Release() })
}
