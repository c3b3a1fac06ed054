package fragment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderBoundaryTable(t *testing.T) {
	cases := []struct {
		n    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		// n=128 needs only one little-endian length byte (128 < 2^8), per
		// the "k is the smallest value with n < 2^(8k)" rule; see DESIGN.md.
		{128, []byte{0x81, 0x80}},
		{65535, []byte{0x82, 0xFF, 0xFF}},
		{65536, []byte{0x83, 0x00, 0x00, 0x01}},
	}
	for _, c := range cases {
		got := BuildHeader(c.n)
		require.Equal(t, c.want, got, "n=%d", c.n)

		n, hlen, err := ReadHeader(got)
		require.NoError(t, err)
		require.Equal(t, c.n, n)
		require.Equal(t, len(c.want), hlen)
	}
}

func TestHeaderRoundTripFullRange(t *testing.T) {
	samples := []uint64{0, 1, 2, 63, 126, 127, 128, 129, 200, 1000,
		1 << 16, 1<<16 - 1, 1 << 20, 1<<24 - 2, 1<<24 - 1}
	for _, n := range samples {
		built := BuildHeader(n)
		require.LessOrEqual(t, len(built), MaxHeaderSize)
		gotN, gotLen, err := ReadHeader(built)
		require.NoError(t, err)
		require.Equal(t, n, gotN)
		require.Equal(t, len(built), gotLen)
	}
}

func TestReadHeaderRejectsTruncated(t *testing.T) {
	_, _, err := ReadHeader([]byte{0x82, 0xFF})
	require.Error(t, err)
}

func TestReadHeaderRejectsEmpty(t *testing.T) {
	_, _, err := ReadHeader(nil)
	require.Error(t, err)
}
