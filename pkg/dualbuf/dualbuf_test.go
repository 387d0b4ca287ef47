package dualbuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"xbuf/internal/xerr"
)

func TestLinearFillDrainRefill(t *testing.T) {
	b, err := Open(Options{Size: MinSize})
	require.NoError(t, err)

	n, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, 5, b.Available())

	dst := make([]byte, 5)
	n, err = b.Read(dst)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(dst))

	// Draining to empty resets both cursors to begin (spec.md §4.1).
	require.Equal(t, 0, b.Available())
	n, err = b.Write([]byte("again"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestLinearWriteStopsAtCapacity(t *testing.T) {
	b, err := Open(Options{Size: MinSize})
	require.NoError(t, err)

	big := bytes.Repeat([]byte("x"), MinSize+10)
	n, err := b.Write(big)
	require.NoError(t, err)
	require.Equal(t, MinSize, n)
	require.Equal(t, 0, b.Space())
}

func TestCircularBufferRestrictsBulkIO(t *testing.T) {
	b, err := Open(Options{Size: MinSize, Flags: Circular})
	require.NoError(t, err)

	n, err := b.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 0, n)

	n, err = b.Read(make([]byte, 4))
	require.NoError(t, err)
	require.Equal(t, 0, n)

	err = b.Seek(0, OriginSet, ModeRead)
	require.Error(t, err)

	_, err = b.Compact()
	require.Error(t, err)
}

func TestCircularPutGetWraps(t *testing.T) {
	b, err := Open(Options{Storage: make([]byte, 4), Flags: Circular | Binary})
	require.NoError(t, err)

	for _, c := range []byte("ab") {
		_, err := b.PutC(c)
		require.NoError(t, err)
	}
	c, err := b.GetC()
	require.NoError(t, err)
	require.Equal(t, byte('a'), c)

	// Wrap the write cursor around the end of the backing array.
	for _, c := range []byte("cde") {
		_, err := b.PutC(c)
		require.NoError(t, err)
	}

	var out []byte
	for i := 0; i < 4; i++ {
		c, err := b.GetC()
		require.NoError(t, err)
		out = append(out, c)
	}
	require.Equal(t, "bcde", string(out))
}

func TestPutCInjectsCROnBareLF(t *testing.T) {
	b, err := Open(Options{Size: MinSize})
	require.NoError(t, err)

	_, err = b.PutC('\n')
	require.NoError(t, err)
	require.Equal(t, 2, b.Available())

	dst := make([]byte, 2)
	_, _ = b.Read(dst)
	require.Equal(t, "\r\n", string(dst))
}

func TestPutCCRLFIsAtomicOnNearlyFullBuffer(t *testing.T) {
	b, err := Open(Options{Size: MinSize})
	require.NoError(t, err)
	// Fill to exactly one byte of free space.
	filler := bytes.Repeat([]byte("x"), MinSize-1)
	_, err = b.Write(filler)
	require.NoError(t, err)
	require.Equal(t, 1, b.Space())

	_, err = b.PutC('\n')
	require.ErrorIs(t, err, xerr.ErrEndOfStream)
	// Neither the CR nor the LF was admitted.
	require.Equal(t, 1, b.Space())
}

func TestUngetCThenGetCReturnsSameByte(t *testing.T) {
	b, err := Open(Options{Size: MinSize})
	require.NoError(t, err)

	_, err = b.Write([]byte("ab"))
	require.NoError(t, err)

	c, err := b.GetC()
	require.NoError(t, err)
	require.Equal(t, byte('a'), c)

	require.NoError(t, b.UngetC('a'))
	c, err = b.GetC()
	require.NoError(t, err)
	require.Equal(t, byte('a'), c)

	require.NoError(t, b.UngetC('z'))
	_, _ = b.GetC()
	require.NoError(t, b.UngetC('z'))
	require.ErrorIs(t, b.UngetC('y'), xerr.ErrWouldBlock)
}

func TestSeekAndTell(t *testing.T) {
	b, err := Open(Options{Size: MinSize, Flags: Packing})
	require.NoError(t, err)

	_, err = b.Write([]byte("0123456789"))
	require.NoError(t, err)

	require.NoError(t, b.Seek(-3, OriginCur, ModeWrite))
	pos, err := b.Tell(ModeWrite)
	require.NoError(t, err)
	require.Equal(t, 7, pos)

	require.NoError(t, b.Seek(2, OriginSet, ModeRead))
	pos, err = b.Tell(ModeRead)
	require.NoError(t, err)
	require.Equal(t, 2, pos)
}

func TestCompactMovesLiveBytesToFront(t *testing.T) {
	b, err := Open(Options{Size: MinSize, Flags: Packing})
	require.NoError(t, err)

	_, err = b.Write([]byte("0123456789"))
	require.NoError(t, err)
	dst := make([]byte, 4)
	_, _ = b.Read(dst)

	free, err := b.Compact()
	require.NoError(t, err)
	require.Equal(t, MinSize-6, free)

	pos, err := b.Tell(ModeRead)
	require.NoError(t, err)
	require.Equal(t, 0, pos)
}

func TestGetsStopsAtLFAndNulTerminates(t *testing.T) {
	b, err := Open(Options{Size: MinSize})
	require.NoError(t, err)

	_, err = b.Write([]byte("abc\r\ndef"))
	require.NoError(t, err)

	dst := make([]byte, 16)
	n, ok := b.Gets(dst, len(dst))
	require.True(t, ok)
	require.Equal(t, "abc\n", string(dst[:n]))
	require.Equal(t, byte(0), dst[n])
}

func TestInIsrGuardNeverBlocksOnTheMutex(t *testing.T) {
	b, err := Open(Options{Size: MinSize, Flags: Circular | Binary | InIsr})
	require.NoError(t, err)

	// Simulate a concurrent preemptible-context holder of the mutex: an
	// InIsr-flagged buffer must still be usable while it is held, since
	// its guard never touches the mutex.
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err = b.PutC('z')
	require.NoError(t, err)
	c, err := b.GetC()
	require.NoError(t, err)
	require.Equal(t, byte('z'), c)
}

func TestManagerEnforcesSlotLimit(t *testing.T) {
	m := NewManager(2)

	b1, err := m.Open(Options{Size: MinSize})
	require.NoError(t, err)
	require.Equal(t, 0, b1.Handle())

	b2, err := m.Open(Options{Size: MinSize})
	require.NoError(t, err)
	require.Equal(t, 1, b2.Handle())

	_, err = m.Open(Options{Size: MinSize})
	require.Error(t, err)

	require.NoError(t, m.Close(b1))

	b3, err := m.Open(Options{Size: MinSize})
	require.NoError(t, err)
	require.Equal(t, 0, b3.Handle())
}
