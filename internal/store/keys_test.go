package store

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFragmentKeyLayout(t *testing.T) {
	k := FragmentKey(1, 0)
	require.Len(t, k, FixedKeyLen)
	require.Equal(t, byte(0x00), k[0])
	// Scenario B from spec.md §8: event 1, fragment 0.
	require.Equal(t, []byte{0x00, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0}, k)
}

func TestFragmentZeroKeyCarriesHeader(t *testing.T) {
	k := FragmentZeroKey(1, []byte{0x02})
	require.Equal(t, FixedKeyLen+1, len(k))
	require.Equal(t, byte(0x02), k[FixedKeyLen])
}

func TestKeyOrderingMatchesIDThenIndex(t *testing.T) {
	// Invariant 4: byte-lexicographic key order agrees with
	// (event_id, fragment_index) lexicographic order.
	type pair struct{ id uint64; idx uint32 }
	pairs := []pair{
		{1, 0}, {1, 1}, {1, 2}, {2, 0}, {2, 1}, {10, 0},
	}
	keys := make([][]byte, len(pairs))
	for i, p := range pairs {
		keys[i] = FragmentKey(p.id, p.idx)
	}

	shuffled := append([][]byte{}, keys...)
	sort.Slice(shuffled, func(i, j int) bool { return bytes.Compare(shuffled[i], shuffled[j]) < 0 })
	require.Equal(t, keys, shuffled)
}

func TestEventRangeBounds(t *testing.T) {
	begin, end := EventRange(5)
	require.Equal(t, FragmentKey(5, 0), begin)
	require.Equal(t, FragmentKey(6, 0), end)
}
