package replay

import (
	"testing"
)

// gridMesh returns the 3x3 triangulated plane used throughout the tests:
//
//	6 - 7 - 8
//	| \ | \ |
//	3 - 4 - 5
//	| \ | \ |
//	0 - 1 - 2
func gridMesh() ([]Point, []Triangle[uint32]) {
	points := []Point{
		{0.5, -0.5, 0}, {0, -0.5, 0}, {-0.5, -0.5, 0},
		{0.5, 0, 0}, {0, 0, 0}, {-0.5, 0, 0},
		{0.5, 0.5, 0}, {0, 0.5, 0}, {-0.5, 0.5, 0},
	}
	triangles := []Triangle[uint32]{
		{0, 1, 3}, {4, 3, 1},
		{1, 2, 4}, {5, 4, 2},
		{3, 4, 6}, {7, 6, 4},
		{4, 5, 7}, {8, 7, 5},
	}
	return points, triangles
}

// octahedronMesh returns a closed mesh with poles 0 and 1 and the equator
// ring 2, 3, 4, 5.
func octahedronMesh() ([]Point, []Triangle[uint32]) {
	points := []Point{
		{0, 0, 1}, {0, 0, -1},
		{1, 0, 0}, {0, 1, 0}, {-1, 0, 0}, {0, -1, 0},
	}
	triangles := []Triangle[uint32]{
		{0, 2, 3}, {0, 3, 4}, {0, 4, 5}, {0, 5, 2},
		{1, 3, 2}, {1, 4, 3}, {1, 5, 4}, {1, 2, 5},
	}
	return points, triangles
}

// sphereMesh returns a closed UV sphere with the given number of rings and
// segments.
func sphereMesh(rings, segments int) ([]Point, []Triangle[uint32]) {
	points := []Point{{0, 0, 1}}
	for r := 1; r < rings; r++ {
		z := 1 - 2*float32(r)/float32(rings)
		for s := 0; s < segments; s++ {
			// Positions only need to be distinct.
			points = append(points, Point{float32(s), float32(r), z})
		}
	}
	bottom := uint32(len(points))
	points = append(points, Point{0, 0, -1})

	ring := func(r, s int) uint32 {
		return uint32(1 + (r-1)*segments + s%segments)
	}

	var triangles []Triangle[uint32]
	for s := 0; s < segments; s++ {
		triangles = append(triangles, Triangle[uint32]{0, ring(1, s), ring(1, s+1)})
	}
	for r := 1; r < rings-1; r++ {
		for s := 0; s < segments; s++ {
			a, b := ring(r, s), ring(r, s+1)
			c, d := ring(r+1, s), ring(r+1, s+1)
			triangles = append(triangles, Triangle[uint32]{a, c, b}, Triangle[uint32]{b, c, d})
		}
	}
	for s := 0; s < segments; s++ {
		triangles = append(triangles, Triangle[uint32]{bottom, ring(rings-1, s+1), ring(rings-1, s)})
	}
	return points, triangles
}

// simulateCollapses produces a collapse sequence the way a forward decimator
// would on a closed manifold: it repeatedly collapses the first edge that
// satisfies the link condition.
func simulateCollapses(nPoints int, triangles []Triangle[uint32], steps int) []Collapse[uint32] {
	m := make([]uint32, nPoints)
	for i := range m {
		m[i] = uint32(i)
	}
	alive := nPoints

	var collapses []Collapse[uint32]
	for len(collapses) < steps && alive > 4 {
		var current []Triangle[uint32]
		neighbors := make(map[uint32]map[uint32]bool)
		link := func(a, b uint32) {
			if neighbors[a] == nil {
				neighbors[a] = make(map[uint32]bool)
			}
			neighbors[a][b] = true
		}
		for _, t := range triangles {
			mt := Triangle[uint32]{m[t[0]], m[t[1]], m[t[2]]}
			if mt.IsDegenerate() {
				continue
			}
			current = append(current, mt)
			for k := 0; k < 3; k++ {
				link(mt[k], mt[(k+1)%3])
				link(mt[(k+1)%3], mt[k])
			}
		}

		found := false
		for _, t := range current {
			for k := 0; k < 3 && !found; k++ {
				a, b := t[k], t[(k+1)%3]
				common := 0
				for x := range neighbors[a] {
					if neighbors[b][x] {
						common++
					}
				}
				if common != 2 {
					continue
				}
				collapses = append(collapses, Collapse[uint32]{a, b})
				for i := range m {
					if m[i] == b {
						m[i] = a
					}
				}
				alive--
				found = true
			}
			if found {
				break
			}
		}
		if !found {
			break
		}
	}
	return collapses
}

// checkResult verifies the invariants every replay result must satisfy.
func checkResult[I Index](t *testing.T, req Request[I], res *Result[I]) {
	t.Helper()

	nOut := len(res.Points)
	referenced := make([]bool, nOut)
	for i, tri := range res.Triangles {
		if tri.IsDegenerate() {
			t.Errorf("triangle %d is degenerate: %v", i, tri)
		}
		for _, v := range tri {
			if int(v) >= nOut {
				t.Fatalf("triangle %d index %d outside [0, %d)", i, v, nOut)
			}
			referenced[v] = true
		}
	}

	if len(res.Mapping) != len(req.Points) {
		t.Fatalf("expected mapping of length %d, got %d", len(req.Points), len(res.Mapping))
	}
	for i, v := range res.Mapping {
		if int(v) >= nOut {
			t.Fatalf("mapping[%d] = %d outside [0, %d)", i, v, nOut)
		}
		if len(res.Triangles) > 0 && !referenced[v] {
			t.Errorf("mapping[%d] = %d is not referenced by any triangle", i, v)
		}
	}

	m, _, err := ResolveChains(req.Collapses, len(req.Points), Options{})
	if err != nil {
		t.Fatalf("ResolveChains failed: %v", err)
	}
	removed := 0
	for i, root := range m {
		if root != I(i) {
			removed++
		}
	}
	if want := len(req.Points) - removed - len(res.Isolated); nOut != want {
		t.Errorf("expected %d points, got %d", want, nOut)
	}

	// Surviving original vertices keep their position.
	for i, root := range m {
		if root != I(i) {
			continue
		}
		if got := res.Points[res.Mapping[i]]; got != req.Points[i] && !isolatedRow(res, i, m) {
			t.Errorf("vertex %d moved: expected %v, got %v", i, req.Points[i], got)
		}
	}
}

// isolatedRow reports whether original vertex i owned a slot that isolation
// repair removed.
func isolatedRow[I Index](res *Result[I], i int, m []I) bool {
	slot := 0
	for j := 0; j < i; j++ {
		if m[j] == I(j) {
			slot++
		}
	}
	for _, v := range res.Isolated {
		if int(v) == slot {
			return true
		}
	}
	return false
}
