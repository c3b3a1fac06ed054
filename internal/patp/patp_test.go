package patp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGalaxyRoundTrip(t *testing.T) {
	for i := int64(0); i < 256; i++ {
		n := big.NewInt(i)
		s, err := Encode(n)
		require.NoError(t, err)
		require.True(t, len(s) <= MaxLen)

		got, err := Decode(s)
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
}

func TestPlanetRoundTrip(t *testing.T) {
	values := []int64{256, 257, 65535, 65536, 1<<32 - 1, 1 << 32, 1 << 40}
	for _, v := range values {
		n := big.NewInt(v)
		s, err := Encode(n)
		require.NoError(t, err)

		got, err := Decode(s)
		require.NoError(t, err)
		require.Equal(t, n, got)
	}
}

func TestLargeValueRoundTrip(t *testing.T) {
	// A 128-bit comet-class value.
	n := new(big.Int).Lsh(big.NewInt(1), 127)
	n.Add(n, big.NewInt(12345))

	s, err := Encode(n)
	require.NoError(t, err)
	require.LessOrEqual(t, len(s), MaxLen)

	got, err := Decode(s)
	require.NoError(t, err)
	require.Equal(t, n, got)
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	n := new(big.Int).Lsh(big.NewInt(1), 129)
	_, err := Encode(n)
	require.Error(t, err)

	neg := big.NewInt(-1)
	_, err = Encode(neg)
	require.Error(t, err)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"zod",          // missing leading ~
		"~",            // empty point
		"~zzzzzzzzzzz", // not a valid syllable grouping
		"~zod-",        // trailing dash, malformed word
		"~" + string(make([]byte, MaxLen)), // too long
	}
	for _, c := range cases {
		_, err := Decode(c)
		require.Error(t, err, "expected error for %q", c)
	}
}

func TestDecodeRejectsUnknownSyllable(t *testing.T) {
	_, err := Decode("~qqq")
	require.Error(t, err)
}

func TestTablesAreBijective(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 256; i++ {
		require.False(t, seen[prefixTable[i]], "duplicate prefix syllable %q", prefixTable[i])
		seen[prefixTable[i]] = true
	}
	seen = map[string]bool{}
	for i := 0; i < 256; i++ {
		require.False(t, seen[suffixTable[i]], "duplicate suffix syllable %q", suffixTable[i])
		seen[suffixTable[i]] = true
	}
}
