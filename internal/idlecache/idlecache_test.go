package idlecache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildCache(t *testing.T, n int, mirrored bool) *Cache {
	t.Helper()
	c := New()
	for i := 0; i < n; i++ {
		require.NoError(t, c.Append([]byte{byte(i)}))
	}
	c.Finalize(mirrored)
	return c
}

func TestMirrorIndexPalindrome(t *testing.T) {
	const n = 5
	c := buildCache(t, n, true)

	got := make([]int, 0, 2*n)
	for i := 0; i < 2*n; i++ {
		f, err := c.Get(i)
		require.NoError(t, err)
		got = append(got, f.FrameIdx)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4, 4, 3, 2, 1, 0}, got)
}

func TestMirrorIndexRepeatsWithPeriod2N(t *testing.T) {
	const n = 7
	c := buildCache(t, n, true)
	for k := 0; k < n; k++ {
		a, err := c.Get(k)
		require.NoError(t, err)
		b, err := c.Get(2*n - 1 - k)
		require.NoError(t, err)
		require.Equal(t, a.FrameIdx, b.FrameIdx)
	}
	a, err := c.Get(0)
	require.NoError(t, err)
	b, err := c.Get(2 * n)
	require.NoError(t, err)
	require.Equal(t, a.FrameIdx, b.FrameIdx)
}

func TestPlainWraparoundWithoutMirroring(t *testing.T) {
	const n = 4
	c := buildCache(t, n, false)
	for i := 0; i < 3*n; i++ {
		f, err := c.Get(i)
		require.NoError(t, err)
		require.Equal(t, i%n, f.FrameIdx)
	}
}

func TestAppendAfterFinalizeFails(t *testing.T) {
	c := buildCache(t, 2, true)
	require.ErrorIs(t, c.Append([]byte{0}), ErrNotBuilding)
}

func TestGetOnEmptyCache(t *testing.T) {
	c := New()
	c.Finalize(true)
	_, err := c.Get(0)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestLenMatchesAppendedCount(t *testing.T) {
	c := buildCache(t, 125, true)
	require.Equal(t, 125, c.Len())
}
