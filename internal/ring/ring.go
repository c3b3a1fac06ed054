// Package ring implements the fixed-capacity, optionally growable,
// power-of-two circular byte buffer used both as a zero-copy I/O target for
// the network reader and as the write-op queue between the protocol parser
// and the FDB consumer.
//
// A Buffer is single-producer/single-consumer: the producer calls Enqueue*
// and the consumer calls Dequeue*/Advance. Indices r and w are unbounded
// monotonically increasing counts, addressed modulo the capacity via a mask;
// one slot is always reserved so Empty and Full are distinguishable.
package ring

import "math/bits"

// Buffer is a circular queue of fixed-size elements.
type Buffer struct {
	buf      []byte
	esize    int
	r, w     uint64
	mask     uint64
	growable bool
}

// New creates a Buffer with at least size element slots of esize bytes each.
// size is rounded up to the next power of two, matching cb_init in the
// original C (async/buffer.h, async/cb.c); one slot stays reserved, so the
// buffer holds at most Cap()-1 elements before it is full.
func New(size int, esize int, growable bool) *Buffer {
	if size < 1 {
		size = 1
	}
	if esize < 1 {
		esize = 1
	}
	cap := roundUpPow2(size)
	return &Buffer{
		buf:      make([]byte, cap*esize),
		esize:    esize,
		mask:     uint64(cap) - 1,
		growable: growable,
	}
}

func roundUpPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Cap returns the number of element slots currently allocated (one of which
// is always reserved).
func (b *Buffer) Cap() int { return int(b.mask) + 1 }

// ElemSize returns the configured per-element size in bytes.
func (b *Buffer) ElemSize() int { return b.esize }

func (b *Buffer) rIdx() uint64 { return b.r & b.mask }
func (b *Buffer) wIdx() uint64 { return b.w & b.mask }

// Empty reports whether the buffer holds no elements.
func (b *Buffer) Empty() bool { return b.rIdx() == b.wIdx() }

// Full reports whether the buffer cannot accept another element without
// growing (or failing, if not growable).
func (b *Buffer) Full() bool { return (b.wIdx()+1)&b.mask == b.rIdx() }

// Occupied returns the number of elements currently enqueued.
func (b *Buffer) Occupied() int { return int((b.w - b.r) & b.mask) }

// Free returns the number of elements that may still be enqueued before the
// buffer is full, not counting the one reserved slot.
func (b *Buffer) Free() int { return int((b.r - b.w - 1) & b.mask) }

// WritableContiguousHeadroom returns the number of elements that can be
// written starting at the current write position without wrapping — the
// size of the flat slice a reader (e.g. net.Conn.Read) may fill in place.
func (b *Buffer) WritableContiguousHeadroom() int {
	r, w := b.rIdx(), b.wIdx()
	if w < r {
		return int(r - w - 1)
	}
	if r == 0 {
		// Filling up to the array end would wrap w onto r; keep the
		// reserved slot free.
		return int(uint64(b.Cap()) - w - 1)
	}
	return int(uint64(b.Cap()) - w)
}

// ReadableContiguousHeadroom returns the number of elements that can be read
// starting at the current read position without wrapping.
func (b *Buffer) ReadableContiguousHeadroom() int {
	r, w := b.rIdx(), b.wIdx()
	if r <= w {
		return int(w - r)
	}
	return int(uint64(b.Cap()) - r)
}

// WriteSlot returns a byte slice pointing at the flat writable region
// starting at the write cursor, sized to WritableContiguousHeadroom. The
// caller fills it (e.g. via conn.Read) and then calls Produce with however
// many whole elements were written.
func (b *Buffer) WriteSlot() []byte {
	off := int(b.wIdx()) * b.esize
	n := b.WritableContiguousHeadroom() * b.esize
	return b.buf[off : off+n]
}

// ReadSlot returns a byte slice pointing at the flat readable region
// starting at the read cursor, sized to ReadableContiguousHeadroom.
func (b *Buffer) ReadSlot() []byte {
	off := int(b.rIdx()) * b.esize
	n := b.ReadableContiguousHeadroom() * b.esize
	return b.buf[off : off+n]
}

// Produce advances the write cursor by n elements, as if Enqueue had been
// called n times with data already placed via WriteSlot.
func (b *Buffer) Produce(n int) { b.w += uint64(n) }

// Advance advances the read cursor by n elements, as if Dequeue had been
// called n times and the data already consumed via ReadSlot.
func (b *Buffer) Advance(n int) { b.r += uint64(n) }

// Enqueue returns a pointer slot for one new element, advancing the write
// cursor. It returns nil if the buffer is full and not growable, or if
// growth fails.
func (b *Buffer) Enqueue() []byte {
	if b.Full() {
		if !b.growable || !b.grow() {
			return nil
		}
	}
	off := int(b.wIdx()) * b.esize
	b.w++
	return b.buf[off : off+b.esize : off+b.esize]
}

// Dequeue returns the element at the read cursor and advances it, or nil if
// the buffer is empty.
func (b *Buffer) Dequeue() []byte {
	if b.Empty() {
		return nil
	}
	off := int(b.rIdx()) * b.esize
	b.r++
	return b.buf[off : off+b.esize]
}

// Peek returns the i-th queued element (0 = oldest) without consuming it.
func (b *Buffer) Peek(i int) []byte {
	idx := (b.r + uint64(i)) & b.mask
	off := int(idx) * b.esize
	return b.buf[off : off+b.esize]
}

// grow doubles capacity, preserving logical order. If the live region does
// not wrap, it is copied in place; if it wraps, the low half is copied into
// the new upper half. r and w are then rebased onto the copied layout (r at
// its old slot index, w that many elements further on, i.e. offset by the
// old capacity when the region wrapped), since the unbounded counters would
// otherwise land on different slots under the wider mask. Mirrors cb_grow in
// async/cb.c.
func (b *Buffer) grow() bool {
	oldCap := b.Cap()
	newCap := oldCap << 1
	nb := make([]byte, newCap*b.esize)

	n := b.w - b.r
	r, w := b.rIdx(), b.wIdx()
	if r <= w {
		copy(nb[int(r)*b.esize:], b.buf[int(r)*b.esize:int(w)*b.esize])
	} else {
		copy(nb[int(r)*b.esize:], b.buf[int(r)*b.esize:oldCap*b.esize])
		copy(nb[oldCap*b.esize:], b.buf[:int(w)*b.esize])
	}
	b.r = r
	b.w = r + n

	b.buf = nb
	b.mask = uint64(newCap) - 1
	return true
}
