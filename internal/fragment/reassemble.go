package fragment

import "fmt"

// ErrShortRead is returned when fewer fragments were observed than the
// header on fragment 0 declared. Mirrors spec.md §4.3's ShortRead.
var ErrShortRead = fmt.Errorf("fragment: short read")

// Reassembler incrementally rebuilds one event's payload from its fragments
// as they arrive (e.g. one FDB range-read page at a time), per spec.md
// §4.2's reverse path: the first key/value supplies the header (and thus
// N), then every subsequent fragment's value must be exactly fragmentSize
// bytes.
type Reassembler struct {
	fragmentSize int
	total        int // N, from the header
	seen         int
	buf          []byte
	filled       int
}

// NewReassembler starts reassembly given the first fragment's key suffix
// (the bytes after the fixed 13-byte key form, i.e. the header) and its
// value (fragment 0's payload), and the configured fragment size.
func NewReassembler(headerBytes []byte, firstValue []byte, fragmentSize int) (*Reassembler, error) {
	n, _, err := ReadHeader(headerBytes)
	if err != nil {
		return nil, fmt.Errorf("fragment: reassemble: %w", err)
	}
	total := int(n) + 1
	length := len(firstValue) + (total-1)*fragmentSize
	r := &Reassembler{
		fragmentSize: fragmentSize,
		total:        total,
		buf:          make([]byte, length),
	}
	r.filled = copy(r.buf, firstValue)
	r.seen = 1
	return r, nil
}

// NumFragments returns N as declared by the header.
func (r *Reassembler) NumFragments() int { return r.total }

// Append adds the next fragment's value in index order. Every non-first
// fragment must be exactly fragmentSize bytes.
func (r *Reassembler) Append(value []byte) error {
	if r.seen >= r.total {
		return fmt.Errorf("fragment: reassemble: too many fragments, expected %d", r.total)
	}
	if len(value) != r.fragmentSize {
		return fmt.Errorf("fragment: reassemble: fragment %d has length %d, want %d",
			r.seen, len(value), r.fragmentSize)
	}
	n := copy(r.buf[r.filled:], value)
	r.filled += n
	r.seen++
	return nil
}

// Done reports whether all N fragments have been appended.
func (r *Reassembler) Done() bool { return r.seen == r.total }

// Payload returns the reassembled event payload. It is only valid once
// Done() is true; otherwise the caller should treat the read as a short
// read (ErrShortRead).
func (r *Reassembler) Payload() ([]byte, error) {
	if !r.Done() {
		return nil, ErrShortRead
	}
	return r.buf, nil
}
