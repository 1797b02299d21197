package resample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassthroughWhenRatesMatch(t *testing.T) {
	r, err := New(TargetRate)
	require.NoError(t, err)
	in := int16ToBytes([]int16{1, 2, 3, -4})
	out, err := r.Process(in)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestProcessOutputIsSampleAligned(t *testing.T) {
	r, err := New(48000)
	require.NoError(t, err)
	in := make([]byte, 48000/1000*40*2) // 40ms @ 48kHz mono 16-bit
	out, err := r.Process(in)
	require.NoError(t, err)
	require.Zero(t, len(out)%2, "output must stay sample-aligned")
}

func TestInvalidSourceRate(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}

func TestOddByteLengthIsTruncatedNotErrored(t *testing.T) {
	r, err := New(TargetRate)
	require.NoError(t, err)
	in := []byte{1, 2, 3}
	out, err := r.Process(in)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, out)
}
