package fragment

// HeaderFor returns the fragment-count header that belongs on fragment 0's
// key for src, encoding NumFragments()-1 additional fragments.
func HeaderFor(src Source) []byte {
	return BuildHeader(uint64(src.NumFragments() - 1))
}

// Pair is one (fragment index, payload) produced by Emit, in index order.
type Pair struct {
	Index   int
	Payload []byte
}

// Emit returns the full ordered sequence of fragments for src. The
// fragmenter is a pure transformation over src; callers that need to
// release src's backing storage should call src.Free() once done iterating.
func Emit(src Source) []Pair {
	n := src.NumFragments()
	out := make([]Pair, n)
	for i := 0; i < n; i++ {
		out[i] = Pair{Index: i, Payload: src.Fragment(i)}
	}
	return out
}
