package store

import "encoding/binary"

// KeyPrefix is the one-byte prefix the whole fragment key-space lives under,
// kept clear of FDB's own system key-space (spec.md §3).
const KeyPrefix = 0x00

// FixedKeyLen is the length of a fragment key with no header suffix: prefix
// (1) + event id (8) + fragment index (4).
const FixedKeyLen = 1 + 8 + 4

// FragmentKey returns the fixed 13-byte key for fragment index of event id.
// Fragment 0's real on-the-wire key additionally carries the fragment-count
// header (see FragmentZeroKey); this form is also what ReadEvent uses to
// build range-read bounds.
func FragmentKey(id uint64, index uint32) []byte {
	k := make([]byte, FixedKeyLen)
	k[0] = KeyPrefix
	binary.BigEndian.PutUint64(k[1:9], id)
	binary.BigEndian.PutUint32(k[9:13], index)
	return k
}

// FragmentZeroKey returns fragment 0's key, with the fragment-count header
// bytes appended to the key suffix (spec.md §3/§4.3: "this places the
// header on the key, not the value").
func FragmentZeroKey(id uint64, header []byte) []byte {
	k := FragmentKey(id, 0)
	return append(k, header...)
}

// EventRange returns the [begin, end) key bounds for every fragment of
// event id: begin is fragment 0's fixed-form key, end is event id+1's
// fragment-0 key (exclusive), per spec.md §4.3.
func EventRange(id uint64) (begin, end []byte) {
	return FragmentKey(id, 0), FragmentKey(id+1, 0)
}
