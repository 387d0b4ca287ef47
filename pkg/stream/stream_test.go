package stream

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"xbuf/internal/sched"
	"xbuf/internal/xerr"
)

// fakeScheduler never sleeps; Yield just returns immediately so blocking
// tests run fast while still exercising the retry loop.
type fakeScheduler struct{}

func (fakeScheduler) Yield()        {}
func (fakeScheduler) Running() bool { return true }

func TestWriteReadRoundTrip(t *testing.T) {
	s, err := New(Options{Size: MinSize})
	require.NoError(t, err)

	n, err := s.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, 5, s.Len())

	dst := make([]byte, 5)
	n, err = s.Read(dst)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(dst))
	require.Equal(t, 0, s.Len())
}

func TestNonBlockWriteReturnsWouldBlockOnCongestion(t *testing.T) {
	s, err := New(Options{Size: MinSize, Flags: NonBlock})
	require.NoError(t, err)

	filler := bytes.Repeat([]byte("x"), MinSize)
	n, err := s.Write(filler)
	require.NoError(t, err)
	require.Equal(t, MinSize, n)

	n, err = s.Write([]byte("more"))
	require.ErrorIs(t, err, xerr.ErrWouldBlock)
	require.Equal(t, 0, n)
}

func TestNonBlockReadReturnsEndOfStreamWhenEmpty(t *testing.T) {
	s, err := New(Options{Size: MinSize, Flags: NonBlock})
	require.NoError(t, err)

	_, err = s.Read(make([]byte, 4))
	require.ErrorIs(t, err, xerr.ErrEndOfStream)
}

func TestTruncatePolicyEvictsOldestBytes(t *testing.T) {
	s, err := New(Options{Storage: make([]byte, 8), Flags: Truncate | Binary})
	require.NoError(t, err)

	n, err := s.Write([]byte("abcdefgh"))
	require.NoError(t, err)
	require.Equal(t, 8, n)

	n, err = s.Write([]byte("XY"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	dst := make([]byte, 8)
	_, _ = s.Read(dst)
	require.Equal(t, "cdefghXY", string(dst))
}

func TestBlockingWriteUnblocksOnRead(t *testing.T) {
	s, err := New(Options{Storage: make([]byte, 4), Flags: Binary, Scheduler: fakeScheduler{}})
	require.NoError(t, err)

	_, err = s.Write([]byte("abcd"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		n, err := s.Write([]byte("ef"))
		require.NoError(t, err)
		require.Equal(t, 2, n)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("blocking write returned before room was freed")
	default:
	}

	dst := make([]byte, 2)
	_, err = s.Read(dst)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("blocking write never unblocked after a read freed room")
	}
}

func TestBlockingReadUnblocksOnWrite(t *testing.T) {
	s, err := New(Options{Size: MinSize, Flags: Binary, Scheduler: fakeScheduler{}})
	require.NoError(t, err)

	done := make(chan byte)
	go func() {
		c, err := s.GetC()
		require.NoError(t, err)
		done <- c
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.PutC('z'))

	select {
	case c := <-done:
		require.Equal(t, byte('z'), c)
	case <-time.After(time.Second):
		t.Fatal("blocking read never unblocked after a write added data")
	}
}

func TestPutCInjectsCRBeforeLF(t *testing.T) {
	s, err := New(Options{Size: MinSize})
	require.NoError(t, err)

	require.NoError(t, s.PutC('\n'))
	require.Equal(t, 2, s.Len())

	dst := make([]byte, 2)
	_, _ = s.Read(dst)
	require.Equal(t, "\r\n", string(dst))
}

func TestReadTimeoutGivesUpAfterDeadline(t *testing.T) {
	s, err := New(Options{Size: MinSize, Scheduler: fakeScheduler{}})
	require.NoError(t, err)

	_, err = s.ReadTimeout(make([]byte, 4), 5*time.Millisecond)
	require.ErrorIs(t, err, xerr.ErrWouldBlock)
}

func TestReadTimeoutSucceedsBeforeDeadline(t *testing.T) {
	s, err := New(Options{Size: MinSize, Scheduler: fakeScheduler{}})
	require.NoError(t, err)

	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = s.PutC('q')
	}()

	dst := make([]byte, 1)
	n, err := s.ReadTimeout(dst, time.Second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, byte('q'), dst[0])
}

func TestGetsFiltersCRAndStopsAtLF(t *testing.T) {
	s, err := New(Options{Size: MinSize})
	require.NoError(t, err)

	_, err = s.Write([]byte("abc\r\ndef"))
	require.NoError(t, err)

	dst := make([]byte, 16)
	n, ok := s.Gets(dst)
	require.True(t, ok)
	require.Equal(t, "abc", string(dst[:n]))
	require.Equal(t, byte(0), dst[n])
}

func TestEmptyBlockDrainsInTwoChunksAcrossWrap(t *testing.T) {
	s, err := New(Options{Storage: make([]byte, 8), Flags: Binary})
	require.NoError(t, err)

	_, err = s.Write([]byte("abcdef"))
	require.NoError(t, err)
	_, _ = s.Read(make([]byte, 4))
	_, err = s.Write([]byte("ghij")) // wraps write past the end of buf
	require.NoError(t, err)

	var got []byte
	err = s.EmptyBlock(func(p []byte) (int, error) {
		got = append(got, p...)
		return len(p), nil
	})
	require.NoError(t, err)
	require.Equal(t, "efghij", string(got))
	require.Equal(t, 0, s.Len())
}

func TestEmptyBlockRejectsShortWrite(t *testing.T) {
	s, err := New(Options{Size: MinSize, Flags: Binary})
	require.NoError(t, err)
	_, err = s.Write([]byte("abc"))
	require.NoError(t, err)

	err = s.EmptyBlock(func(p []byte) (int, error) {
		return len(p) - 1, nil
	})
	require.Error(t, err)
}

func TestFacadeEnforcesDescriptorLimit(t *testing.T) {
	table := NewTable("/ubuf")

	var fds []int
	for i := 0; i < MaxOpenFds; i++ {
		fd, err := table.Open("/ubuf/hist", ReadWrite, MinSize)
		require.NoError(t, err)
		fds = append(fds, fd)
	}

	_, err := table.Open("/ubuf/hist", ReadWrite, MinSize)
	require.Error(t, err)

	require.NoError(t, table.Close(fds[0]))
	fd, err := table.Open("/ubuf/hist", ReadWrite, MinSize)
	require.NoError(t, err)
	require.Equal(t, fds[0], fd)
}

func TestFacadeRejectsRelativePath(t *testing.T) {
	table := NewTable("/ubuf")
	_, err := table.Open("hist", ReadWrite, MinSize)
	require.Error(t, err)
}

func TestFacadeIoctlReturnsUnderlyingStream(t *testing.T) {
	table := NewTable("/ubuf")
	fd, err := table.Open("/ubuf/hist", ReadWrite, MinSize)
	require.NoError(t, err)

	got, err := table.Ioctl(fd, IoctlPtrCntl)
	require.NoError(t, err)
	require.Equal(t, fd, got.Handle())

	_, err = table.Ioctl(fd, 99)
	require.Error(t, err)
}

var _ sched.Scheduler = fakeScheduler{}
