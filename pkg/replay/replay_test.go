package replay

import (
	"errors"
	"reflect"
	"slices"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestReplay_NoCollapses(t *testing.T) {
	points, triangles := gridMesh()

	res, err := Replay(Request[uint32]{Points: points, Triangles: triangles}, Options{})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if !slices.Equal(res.Points, points) {
		t.Errorf("expected points unchanged, got %v", res.Points)
	}
	if !slices.Equal(res.Triangles, triangles) {
		t.Errorf("expected triangles unchanged, got %v", res.Triangles)
	}
	for i, v := range res.Mapping {
		if v != uint32(i) {
			t.Errorf("mapping[%d]: expected %d, got %d", i, i, v)
		}
	}
}

func TestReplay_GridCenterCollapse(t *testing.T) {
	points, triangles := gridMesh()
	req := Request[uint32]{
		Points:    points,
		Triangles: triangles,
		Collapses: []Collapse[uint32]{{4, 1}, {4, 3}, {4, 5}, {4, 7}},
	}

	res, err := Replay(req, Options{Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if len(res.Points) != 5 {
		t.Errorf("expected 5 points, got %d", len(res.Points))
	}
	// Every triangle of the grid touches at least two absorbed vertices.
	if len(res.Triangles) != 0 {
		t.Errorf("expected no surviving triangles, got %v", res.Triangles)
	}
	center := res.Mapping[4]
	for _, v := range []int{1, 3, 5, 7} {
		if res.Mapping[v] != center {
			t.Errorf("mapping[%d]: expected %d, got %d", v, center, res.Mapping[v])
		}
	}
	if res.Points[center] != points[4] {
		t.Errorf("expected center point %v, got %v", points[4], res.Points[center])
	}
	if len(res.Isolated) != 0 {
		t.Errorf("expected no isolated vertices, got %v", res.Isolated)
	}
}

func TestReplay_GridIsolatedCorner(t *testing.T) {
	points, triangles := gridMesh()
	req := Request[uint32]{
		Points:    points,
		Triangles: triangles,
		// Corner 2 loses both of its triangles.
		Collapses: []Collapse[uint32]{{4, 1}, {4, 5}},
	}

	res, err := Replay(req, Options{Logger: zaptest.NewLogger(t)})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	checkResult(t, req, res)

	if !slices.Equal(res.Isolated, []uint32{1}) {
		t.Errorf("expected isolated slot [1], got %v", res.Isolated)
	}
	if !slices.Equal(res.Synthetic, []Collapse[uint32]{{3, 1}}) {
		t.Errorf("expected synthetic collapse [{3 1}], got %v", res.Synthetic)
	}

	expectedPoints := []Point{points[0], points[3], points[4], points[6], points[7], points[8]}
	if !slices.Equal(res.Points, expectedPoints) {
		t.Errorf("expected points %v, got %v", expectedPoints, res.Points)
	}
	expectedTriangles := []Triangle[uint32]{{0, 2, 1}, {1, 2, 3}, {4, 3, 2}, {5, 4, 2}}
	if !slices.Equal(res.Triangles, expectedTriangles) {
		t.Errorf("expected triangles %v, got %v", expectedTriangles, res.Triangles)
	}
	expectedMapping := []uint32{0, 2, 2, 1, 2, 2, 3, 4, 5}
	if !slices.Equal(res.Mapping, expectedMapping) {
		t.Errorf("expected mapping %v, got %v", expectedMapping, res.Mapping)
	}

	if res.Stats.Kept != 7 || res.Stats.Isolated != 1 || res.Stats.Degenerate != 4 {
		t.Errorf("unexpected stats %+v", res.Stats)
	}
}

func TestReplay_Octahedron(t *testing.T) {
	points, triangles := octahedronMesh()
	collapses := []Collapse[uint32]{{0, 2}, {0, 3}}

	for k := 0; k <= len(collapses); k++ {
		req := Request[uint32]{Points: points, Triangles: triangles, Collapses: collapses}.Prefix(k)

		res, err := Replay(req, Options{})
		if err != nil {
			t.Fatalf("prefix %d: Replay failed: %v", k, err)
		}
		checkResult(t, req, res)

		if len(res.Points) != len(points)-k {
			t.Errorf("prefix %d: expected %d points, got %d", k, len(points)-k, len(res.Points))
		}
		if want := len(triangles) - 2*k; len(res.Triangles) != want {
			t.Errorf("prefix %d: expected %d triangles, got %d", k, want, len(res.Triangles))
		}
		if len(res.Synthetic) != 0 {
			t.Errorf("prefix %d: expected no synthetic collapses, got %v", k, res.Synthetic)
		}
	}
}

func TestReplay_SpherePrefixes(t *testing.T) {
	points, triangles := sphereMesh(8, 12)
	collapses := simulateCollapses(len(points), triangles, 4)
	if len(collapses) != 4 {
		t.Fatalf("expected 4 simulated collapses, got %d", len(collapses))
	}

	full := Request[uint32]{Points: points, Triangles: triangles, Collapses: collapses}
	for k := 0; k <= len(collapses); k++ {
		req := full.Prefix(k)
		res, err := Replay(req, Options{})
		if err != nil {
			t.Fatalf("prefix %d: Replay failed: %v", k, err)
		}
		checkResult(t, req, res)
	}

	res, err := Replay(full, Options{})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(res.Isolated) != 0 || len(res.Synthetic) != 0 {
		t.Errorf("full replay should need no repair, got isolated %v", res.Isolated)
	}
	if want := len(points) - len(collapses); len(res.Points) != want {
		t.Errorf("expected %d points, got %d", want, len(res.Points))
	}
}

func TestReplay_LongSequence(t *testing.T) {
	points, triangles := sphereMesh(12, 16)
	collapses := simulateCollapses(len(points), triangles, 60)
	full := Request[uint32]{Points: points, Triangles: triangles, Collapses: collapses}

	for _, k := range []int{1, len(collapses) / 3, len(collapses) / 2, len(collapses)} {
		req := full.Prefix(k)
		res, err := Replay(req, Options{Workers: 3})
		if err != nil {
			t.Fatalf("prefix %d: Replay failed: %v", k, err)
		}
		checkResult(t, req, res)
	}
}

func TestReplay_Deterministic(t *testing.T) {
	points, triangles := gridMesh()
	req := Request[uint32]{
		Points:    points,
		Triangles: triangles,
		Collapses: []Collapse[uint32]{{4, 1}, {4, 5}},
	}

	first, err := Replay(req, Options{Workers: 1})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Replay(req, Options{Workers: 4})
		if err != nil {
			t.Fatalf("Replay failed: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestReplay_WideIndices(t *testing.T) {
	points, triangles := gridMesh()
	collapses := []Collapse[uint32]{{4, 1}, {4, 5}}

	narrow, err := Replay(Request[uint32]{Points: points, Triangles: triangles, Collapses: collapses}, Options{})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	wide, err := Replay(Request[uint64]{Points: points, Triangles: Widen(triangles), Collapses: WidenCollapses(collapses)}, Options{})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if !slices.Equal(narrow.Points, wide.Points) {
		t.Errorf("points differ: %v vs %v", narrow.Points, wide.Points)
	}
	if !slices.Equal(Widen(narrow.Triangles), wide.Triangles) {
		t.Errorf("triangles differ: %v vs %v", narrow.Triangles, wide.Triangles)
	}
	for i := range narrow.Mapping {
		if uint64(narrow.Mapping[i]) != wide.Mapping[i] {
			t.Errorf("mapping[%d]: %d vs %d", i, narrow.Mapping[i], wide.Mapping[i])
		}
	}
}

func TestReplay_ShapeMismatch(t *testing.T) {
	points, triangles := gridMesh()

	tests := []struct {
		name string
		req  Request[uint32]
	}{
		{"triangle index", Request[uint32]{Points: points, Triangles: append(slices.Clone(triangles), Triangle[uint32]{0, 1, 9})}},
		{"collapse index", Request[uint32]{Points: points, Triangles: triangles, Collapses: []Collapse[uint32]{{12, 1}}}},
		{"no points", Request[uint32]{Triangles: triangles}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Replay(tt.req, Options{})
			if !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("expected ErrShapeMismatch, got %v", err)
			}
		})
	}
}

func TestReplay_Malformed(t *testing.T) {
	points, triangles := gridMesh()
	req := Request[uint32]{
		Points:    points,
		Triangles: triangles,
		Collapses: []Collapse[uint32]{{4, 1}, {1, 4}},
	}

	_, err := Replay(req, Options{})
	if !errors.Is(err, ErrMalformedCollapseSequence) {
		t.Errorf("expected ErrMalformedCollapseSequence, got %v", err)
	}
}

func TestReplay_Unrepairable(t *testing.T) {
	// A tetrahedron that survives, plus a lone triangle flattened to an edge.
	points := []Point{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{5, 0, 0}, {6, 0, 0}, {5, 1, 0},
	}
	triangles := []Triangle[uint32]{
		{0, 1, 2}, {0, 3, 1}, {0, 2, 3}, {1, 3, 2},
		{4, 5, 6},
	}
	req := Request[uint32]{Points: points, Triangles: triangles, Collapses: []Collapse[uint32]{{4, 5}}}

	_, err := Replay(req, Options{})
	var uerr *UnrepairableIsolatedVertexError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnrepairableIsolatedVertexError, got %v", err)
	}
	if uerr.Vertex != 4 {
		t.Errorf("expected vertex 4, got %d", uerr.Vertex)
	}
}

func TestReplay_LoosePointUnrepairable(t *testing.T) {
	points, triangles := octahedronMesh()
	points = append(points, Point{9, 9, 9})

	tests := []struct {
		name      string
		collapses []Collapse[uint32]
		vertex    uint64
	}{
		{"no collapses", nil, 6},
		{"with collapses", []Collapse[uint32]{{0, 2}}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Replay(Request[uint32]{Points: points, Triangles: triangles, Collapses: tt.collapses}, Options{})
			if !errors.Is(err, ErrUnrepairableIsolatedVertex) {
				t.Fatalf("expected ErrUnrepairableIsolatedVertex, got %v", err)
			}
			var uerr *UnrepairableIsolatedVertexError
			if !errors.As(err, &uerr) {
				t.Fatalf("expected *UnrepairableIsolatedVertexError, got %T", err)
			}
			if uerr.Vertex != tt.vertex {
				t.Errorf("expected vertex %d, got %d", tt.vertex, uerr.Vertex)
			}
		})
	}
}

func TestParseRepairStrategy(t *testing.T) {
	for _, s := range []RepairStrategy{RepairEdgeOrder, RepairLowestNeighbor} {
		got, err := ParseRepairStrategy(s.String())
		if err != nil {
			t.Fatalf("ParseRepairStrategy(%q) failed: %v", s, err)
		}
		if got != s {
			t.Errorf("expected %v, got %v", s, got)
		}
	}
	if _, err := ParseRepairStrategy("nearest"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
