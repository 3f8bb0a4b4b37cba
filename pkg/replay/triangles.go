package replay

// Triangle classes produced while mapping.
const (
	classKept uint8 = iota
	classEdge
	classCollapsed
)

// Rebuild is the outcome of mapping the input triangles into slot space.
type Rebuild[I Index] struct {
	// Triangles are the mapped triangles with three distinct indices, in
	// input order.
	Triangles []Triangle[I]
	// Edges are recovered from degenerate triangles with exactly two distinct
	// indices, in input order.
	Edges []Edge[I]
	// Slots is the size of the index space the triangles were mapped into.
	Slots      int
	Degenerate int
}

// RebuildTriangles maps triangles through mapping into [0, slots), drops the
// degenerate ones and records the connectivity they still carry as edges.
func RebuildTriangles[I Index](triangles []Triangle[I], mapping []I, slots int, opts Options) Rebuild[I] {
	mapped := make([]Triangle[I], len(triangles))
	class := make([]uint8, len(triangles))

	parallelFor(len(triangles), opts.workers(), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			t := triangles[i]
			mt := Triangle[I]{mapping[t[0]], mapping[t[1]], mapping[t[2]]}
			mapped[i] = mt
			switch {
			case !mt.IsDegenerate():
				class[i] = classKept
			case mt[0] == mt[1] && mt[1] == mt[2]:
				class[i] = classCollapsed
			default:
				class[i] = classEdge
			}
		}
	})

	rb := Rebuild[I]{
		Triangles: make([]Triangle[I], 0, len(triangles)),
		Slots:     slots,
	}
	for i, mt := range mapped {
		switch class[i] {
		case classKept:
			rb.Triangles = append(rb.Triangles, mt)
		case classEdge:
			rb.Degenerate++
			rb.Edges = append(rb.Edges, degenerateEdge(mt))
		default:
			rb.Degenerate++
		}
	}
	return rb
}

// degenerateEdge returns the two distinct indices of a triangle in which
// exactly two indices coincide, repeated vertex first.
func degenerateEdge[I Index](t Triangle[I]) Edge[I] {
	switch {
	case t[0] == t[1]:
		return Edge[I]{t[0], t[2]}
	case t[1] == t[2]:
		return Edge[I]{t[1], t[0]}
	default:
		return Edge[I]{t[0], t[1]}
	}
}

// FilterDegenerate returns the triangles whose indices are pairwise
// distinct, preserving order.
func FilterDegenerate[I Index](triangles []Triangle[I]) []Triangle[I] {
	out := make([]Triangle[I], 0, len(triangles))
	for _, t := range triangles {
		if !t.IsDegenerate() {
			out = append(out, t)
		}
	}
	return out
}
