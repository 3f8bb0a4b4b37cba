package replay

// Compaction is the dense renumbering of the vertices that survive chain
// resolution.
type Compaction[I Index] struct {
	// Mapping sends every original vertex to its slot in [0, len(Kept)).
	Mapping []I
	// Kept lists the original index owning each slot, ascending.
	Kept []I
}

// Compact assigns a dense slot to every vertex with m[i] == i, in ascending
// original order, and composes m with that assignment. The resulting mapping
// is surjective onto [0, len(Kept)).
func Compact[I Index](m []I, opts Options) Compaction[I] {
	slot := make([]I, len(m))
	kept := make([]I, 0, len(m))
	for i, root := range m {
		if root == I(i) {
			slot[i] = I(len(kept))
			kept = append(kept, I(i))
		}
	}

	mapping := make([]I, len(m))
	parallelFor(len(m), opts.workers(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			mapping[i] = slot[m[i]]
		}
	})

	return Compaction[I]{Mapping: mapping, Kept: kept}
}

// Gather selects the points owning a slot, in slot order.
func (c Compaction[I]) Gather(points []Point) []Point {
	out := make([]Point, len(c.Kept))
	for slot, i := range c.Kept {
		out[slot] = points[i]
	}
	return out
}

// ResolveMapping resolves collapse chains and compacts the result: the
// returned slice maps each of the nPoints original vertices to its slot in
// the decimated points buffer.
func ResolveMapping[I Index](collapses []Collapse[I], nPoints int, opts Options) ([]I, error) {
	m, _, err := ResolveChains(collapses, nPoints, opts)
	if err != nil {
		return nil, err
	}
	return Compact(m, opts).Mapping, nil
}
