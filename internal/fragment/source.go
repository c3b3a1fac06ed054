package fragment

// Source is the interface a fragmenter consumes an event through. It plays
// the role the teacher's internal/interfaces.Backend ops-table plays for
// block I/O (ReadAt/WriteAt/Size/Close/Flush), generalized to event-shaped
// methods per spec.md Design Notes §9: the variants are few and closed, so
// an interface (rather than a full vtable) is sufficient.
type Source interface {
	// ID is the event's id.
	ID() uint64
	// Length is the total payload length in bytes.
	Length() uint64
	// Fragment returns the payload bytes for fragment index i (0-based).
	// Fragment 0 holds Length() mod the fragment size (a full fragment when
	// that is zero); all others have length exactly the configured fragment
	// size.
	Fragment(i int) []byte
	// NumFragments returns ceil(Length()/fragmentSize), always >= 1.
	NumFragments() int
	// Free releases any resources the source owns. Called once the
	// fragmenter has finished iterating.
	Free()
}

// InMemory is the only Source variant this core needs: an event whose full
// payload already sits in one contiguous buffer.
type InMemory struct {
	id           uint64
	data         []byte
	fragmentSize int
}

// NewInMemory builds an InMemory source for id/data, fragmented at
// fragmentSize bytes (the configured chunk size, spec.md §3/§6 "F").
func NewInMemory(id uint64, data []byte, fragmentSize int) *InMemory {
	if fragmentSize < 1 {
		fragmentSize = 1
	}
	return &InMemory{id: id, data: data, fragmentSize: fragmentSize}
}

func (s *InMemory) ID() uint64     { return s.id }
func (s *InMemory) Length() uint64 { return uint64(len(s.data)) }

func (s *InMemory) NumFragments() int {
	return numFragments(len(s.data), s.fragmentSize)
}

func (s *InMemory) Fragment(i int) []byte {
	first := firstFragmentLength(len(s.data), s.fragmentSize)
	if i == 0 {
		return s.data[:first]
	}
	start := first + (i-1)*s.fragmentSize
	end := start + s.fragmentSize
	if end > len(s.data) {
		end = len(s.data)
	}
	return s.data[start:end]
}

func (s *InMemory) Free() { s.data = nil }

// numFragments returns ceil(length/fragmentSize), at least 1 — spec.md §3.
func numFragments(length, fragmentSize int) int {
	if length == 0 {
		return 1
	}
	return (length + fragmentSize - 1) / fragmentSize
}

// firstFragmentLength returns length mod fragmentSize if non-zero, else
// fragmentSize — spec.md §3's fragment-0 sizing invariant.
func firstFragmentLength(length, fragmentSize int) int {
	if length == 0 {
		return 0
	}
	rem := length % fragmentSize
	if rem == 0 {
		return fragmentSize
	}
	return rem
}
