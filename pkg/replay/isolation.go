package replay

import (
	"fmt"
	"slices"
)

// FindIsolated returns, in ascending order, the slots that some original
// vertex maps to but that no surviving triangle references. This includes
// input points no triangle ever used.
func FindIsolated[I Index](mapping []I, rb Rebuild[I]) []I {
	slots := rb.Slots
	inImage := make([]bool, slots)
	for _, v := range mapping {
		inImage[v] = true
	}
	inKept := make([]bool, slots)
	for _, t := range rb.Triangles {
		inKept[t[0]] = true
		inKept[t[1]] = true
		inKept[t[2]] = true
	}

	var isolated []I
	for v := 0; v < slots; v++ {
		if inImage[v] && !inKept[v] {
			isolated = append(isolated, I(v))
		}
	}
	return isolated
}

// ComputeNewCollapsesFromEdges pairs every isolated vertex with a merge
// target taken from edges and returns one collapse (target, vertex) per
// isolated vertex, ordered by vertex.
//
// The target is the first edge neighbor, in edge-list order, that is not
// itself isolated. A vertex whose neighbors are all isolated may merge into
// one of them once that neighbor has a target, so every chain ends at a
// non-isolated vertex.
func ComputeNewCollapsesFromEdges[I Index](edges []Edge[I], isolated []I) ([]Collapse[I], error) {
	return computeNewCollapses(edges, isolated, RepairEdgeOrder)
}

func computeNewCollapses[I Index](edges []Edge[I], isolated []I, strategy RepairStrategy) ([]Collapse[I], error) {
	if len(isolated) == 0 {
		return nil, nil
	}

	vertices := slices.Clone(isolated)
	slices.Sort(vertices)
	vertices = slices.Compact(vertices)

	isIsolated := make(map[I]bool, len(vertices))
	for _, v := range vertices {
		isIsolated[v] = true
	}

	// Neighbors of each isolated vertex, first occurrence order.
	neighbors := make(map[I][]I, len(vertices))
	addNeighbor := func(v, nb I) {
		if v == nb || slices.Contains(neighbors[v], nb) {
			return
		}
		neighbors[v] = append(neighbors[v], nb)
	}
	for _, e := range edges {
		if isIsolated[e[0]] {
			addNeighbor(e[0], e[1])
		}
		if isIsolated[e[1]] {
			addNeighbor(e[1], e[0])
		}
	}
	if strategy == RepairLowestNeighbor {
		for _, nbs := range neighbors {
			slices.Sort(nbs)
		}
	}

	target := make(map[I]I, len(vertices))
	for _, v := range vertices {
		for _, nb := range neighbors[v] {
			if !isIsolated[nb] {
				target[v] = nb
				break
			}
		}
	}

	// Attach the remaining vertices to isolated neighbors that already have a
	// target, until nothing changes.
	for progress := true; progress && len(target) < len(vertices); {
		progress = false
		for _, v := range vertices {
			if _, ok := target[v]; ok {
				continue
			}
			for _, nb := range neighbors[v] {
				if _, ok := target[nb]; ok {
					target[v] = nb
					progress = true
					break
				}
			}
		}
	}

	collapses := make([]Collapse[I], 0, len(vertices))
	for _, v := range vertices {
		t, ok := target[v]
		if !ok {
			return nil, &UnrepairableIsolatedVertexError{Vertex: uint64(v)}
		}
		collapses = append(collapses, Collapse[I]{t, v})
	}
	return collapses, nil
}

// ApplyCollapses substitutes synthetic collapses into mapping (in place) and
// into triangles, resolving chains among them first, and returns the
// triangles that are still non-degenerate.
func ApplyCollapses[I Index](mapping []I, triangles []Triangle[I], collapses []Collapse[I], slots int, opts Options) ([]Triangle[I], error) {
	if len(collapses) == 0 {
		return triangles, nil
	}

	resolved, _, err := ResolveChains(collapses, slots, opts)
	if err != nil {
		return nil, fmt.Errorf("resolving repair collapses: %w", err)
	}

	workers := opts.workers()
	parallelFor(len(mapping), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			mapping[i] = resolved[mapping[i]]
		}
	})

	out := make([]Triangle[I], len(triangles))
	parallelFor(len(triangles), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			t := triangles[i]
			out[i] = Triangle[I]{resolved[t[0]], resolved[t[1]], resolved[t[2]]}
		}
	})
	return FilterDegenerate(out), nil
}
