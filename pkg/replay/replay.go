// Package replay rebuilds a decimated triangle mesh from its original
// geometry and a recorded sequence of vertex collapses.
//
// The collapse sequence may be complete or any prefix of the recorded one.
// Partial replays can leave surviving vertices without triangles; those are
// merged into a triangle-connected neighbor and removed from the output.
package replay

import (
	"fmt"

	"go.uber.org/zap"
)

// Request holds the inputs of a single replay.
type Request[I Index] struct {
	Points    []Point
	Triangles []Triangle[I]
	Collapses []Collapse[I]
}

// Stats summarizes a replay.
type Stats struct {
	InputPoints    int
	InputTriangles int
	Collapses      int
	Kept           int // slots after compaction, before isolation repair
	Degenerate     int
	Isolated       int
	Passes         int
}

// Result is the decimated mesh.
type Result[I Index] struct {
	Points    []Point
	Triangles []Triangle[I]
	// Mapping sends each original vertex to its row in Points.
	Mapping []I
	// Isolated lists the compacted slots removed by isolation repair.
	Isolated []I
	// Synthetic are the collapses generated to merge isolated vertices,
	// in compacted slot space.
	Synthetic []Collapse[I]
	Stats     Stats
}

// Validate checks that every triangle and collapse index addresses a point.
func (r Request[I]) Validate() error {
	n := uint64(len(r.Points))
	if n > 0 && n-1 > uint64(^I(0)) {
		return fmt.Errorf("%w: %d points exceed the index range", ErrShapeMismatch, n)
	}
	for i, t := range r.Triangles {
		for _, v := range t {
			if uint64(v) >= n {
				return fmt.Errorf("%w: triangle %d index %d outside [0, %d)", ErrShapeMismatch, i, v, n)
			}
		}
	}
	for i, c := range r.Collapses {
		if uint64(c[0]) >= n || uint64(c[1]) >= n {
			return fmt.Errorf("%w: collapse %d (%d, %d) outside [0, %d)", ErrShapeMismatch, i, c[0], c[1], n)
		}
	}
	return nil
}

// Replay applies the collapses of req to its mesh and returns the compacted,
// degenerate-free result. The inputs are not modified.
func Replay[I Index](req Request[I], opts Options) (*Result[I], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := opts.logger()

	n := len(req.Points)
	stats := Stats{
		InputPoints:    n,
		InputTriangles: len(req.Triangles),
		Collapses:      len(req.Collapses),
	}

	m, passes, err := ResolveChains(req.Collapses, n, opts)
	if err != nil {
		return nil, err
	}
	stats.Passes = passes

	comp := Compact(m, opts)
	points := comp.Gather(req.Points)
	stats.Kept = len(points)

	rb := RebuildTriangles(req.Triangles, comp.Mapping, len(points), opts)
	stats.Degenerate = rb.Degenerate

	result := &Result[I]{
		Points:    points,
		Triangles: rb.Triangles,
		Mapping:   comp.Mapping,
	}

	// Without a single surviving triangle there is nothing to merge into.
	if len(rb.Triangles) == 0 {
		if len(req.Triangles) > 0 {
			log.Warn("no triangle survives the replay, skipping isolation repair",
				zap.Int("triangles", len(req.Triangles)),
				zap.Int("collapses", len(req.Collapses)))
		}
		result.Stats = stats
		return result, nil
	}

	isolated := FindIsolated(comp.Mapping, rb)
	if len(isolated) > 0 {
		synthetic, err := computeNewCollapses(rb.Edges, isolated, opts.Strategy)
		if err != nil {
			return nil, err
		}
		triangles, err := ApplyCollapses(result.Mapping, rb.Triangles, synthetic, len(points), opts)
		if err != nil {
			return nil, err
		}

		result.Points, result.Triangles, result.Mapping = Prune(points, triangles, result.Mapping, isolated, opts)
		result.Isolated = isolated
		result.Synthetic = synthetic
		stats.Isolated = len(isolated)

		log.Debug("repaired isolated vertices",
			zap.Int("isolated", len(isolated)),
			zap.Stringer("strategy", opts.Strategy))
	}

	result.Stats = stats
	log.Debug("replay finished",
		zap.Int("points_in", n),
		zap.Int("points_out", len(result.Points)),
		zap.Int("triangles_in", len(req.Triangles)),
		zap.Int("triangles_out", len(result.Triangles)),
		zap.Int("degenerate", stats.Degenerate),
		zap.Int("passes", stats.Passes))
	return result, nil
}

// Prefix returns a request replaying only the first k collapses.
func (r Request[I]) Prefix(k int) Request[I] {
	k = max(0, min(k, len(r.Collapses)))
	out := r
	out.Collapses = r.Collapses[:k]
	return out
}
