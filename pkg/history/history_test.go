package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func addAll(t *testing.T, r *Ring, records ...string) {
	t.Helper()
	for _, rec := range records {
		require.NoError(t, r.Add([]byte(rec)))
	}
}

func TestNavigationWrapsBothDirections(t *testing.T) {
	r, err := New(DefaultCapacity)
	require.NoError(t, err)

	addAll(t, r, "one", "two", "three", "four")
	require.Equal(t, 4, r.Count())

	dst := make([]byte, DefaultCapacity)
	want := []string{"four", "three", "two", "one"}
	for _, exp := range want {
		out, err := r.Prev(dst)
		require.NoError(t, err)
		require.Equal(t, exp, string(out))
	}

	// A fifth Prev wraps back around to the newest record.
	out, err := r.Prev(dst)
	require.NoError(t, err)
	require.Equal(t, "four", string(out))

	// Next retraces the sequence in reverse.
	for _, exp := range []string{"one", "two", "three", "four"} {
		out, err := r.Next(dst)
		require.NoError(t, err)
		require.Equal(t, exp, string(out))
	}
}

func TestSingleRecordAlwaysReturnsItself(t *testing.T) {
	r, err := New(DefaultCapacity)
	require.NoError(t, err)
	addAll(t, r, "only")

	dst := make([]byte, DefaultCapacity)
	for i := 0; i < 3; i++ {
		out, err := r.Prev(dst)
		require.NoError(t, err)
		require.Equal(t, "only", string(out))
	}
	for i := 0; i < 3; i++ {
		out, err := r.Next(dst)
		require.NoError(t, err)
		require.Equal(t, "only", string(out))
	}
}

func TestEmptyRingNavigationFails(t *testing.T) {
	r, err := New(DefaultCapacity)
	require.NoError(t, err)

	dst := make([]byte, DefaultCapacity)
	_, err = r.Prev(dst)
	require.Error(t, err)
	_, err = r.Next(dst)
	require.Error(t, err)
}

func TestAddEvictsOldestRecordsToMakeRoom(t *testing.T) {
	r, err := New(16)
	require.NoError(t, err)

	// Each of these plus its NUL terminator is 4 bytes; the ring holds at
	// most 4 of them (16 bytes) before the oldest must be evicted.
	addAll(t, r, "aaa", "bbb", "ccc", "ddd")
	require.Equal(t, 4, r.Count())

	require.NoError(t, r.Add([]byte("eee")))
	require.Equal(t, 4, r.Count())

	dst := make([]byte, 16)
	out, err := r.Prev(dst)
	require.NoError(t, err)
	require.Equal(t, "eee", string(out))
}

func TestAddRejectsRecordLargerThanCapacity(t *testing.T) {
	r, err := New(8)
	require.NoError(t, err)
	err = r.Add([]byte("way too long for this ring"))
	require.Error(t, err)
}

func TestNewRejectsTooSmallCapacity(t *testing.T) {
	_, err := New(1)
	require.Error(t, err)
	_, err = New(0)
	require.Error(t, err)
}
