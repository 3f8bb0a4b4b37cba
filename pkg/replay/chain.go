package replay

import (
	"fmt"
	"math/bits"

	"go.uber.org/zap"
)

// passBound returns the number of pointer-doubling passes after which a
// collapse forest over n vertices must have converged. Each pass halves the
// remaining chain length, one extra pass observes the fixed point.
func passBound(n int) int {
	return bits.Len(uint(n)) + 2
}

// ResolveChains maps every vertex in [0, nPoints) to the vertex it survives
// as after replaying collapses in order. Later collapses of the same removed
// vertex overwrite earlier ones. The returned slice M satisfies M[M[i]] == M[i].
//
// Resolution runs pointer-doubling passes over the removed vertices, double
// buffered so every pass reads the fully written result of the previous one.
// It also returns the number of passes used.
func ResolveChains[I Index](collapses []Collapse[I], nPoints int, opts Options) ([]I, int, error) {
	m := make([]I, nPoints)
	for i := range m {
		m[i] = I(i)
	}
	if len(collapses) == 0 {
		return m, 0, nil
	}

	isRemoved := make([]bool, nPoints)
	for i, c := range collapses {
		keep, removed := c.Keep(), c.Removed()
		if uint64(keep) >= uint64(nPoints) || uint64(removed) >= uint64(nPoints) {
			return nil, 0, fmt.Errorf("%w: collapse %d (%d, %d) outside [0, %d)", ErrShapeMismatch, i, keep, removed, nPoints)
		}
		m[removed] = keep
		isRemoved[removed] = true
	}

	removed := make([]I, 0, len(collapses))
	for i, r := range isRemoved {
		if r {
			removed = append(removed, I(i))
		}
	}

	bound := opts.MaxPasses
	if bound <= 0 {
		bound = passBound(nPoints)
	}

	workers := opts.workers()
	cur := m
	next := make([]I, nPoints)
	copy(next, cur)

	for pass := 1; pass <= bound; pass++ {
		changed := parallelAny(len(removed), workers, func(lo, hi int) bool {
			changed := false
			for _, r := range removed[lo:hi] {
				v := cur[cur[r]]
				next[r] = v
				if v != cur[r] {
					changed = true
				}
			}
			return changed
		})
		cur, next = next, cur

		if changed {
			continue
		}

		// A removed vertex that resolves to itself sits on a cycle.
		for _, r := range removed {
			if cur[r] == r {
				return nil, pass, fmt.Errorf("%w: vertex %d collapses onto itself", ErrMalformedCollapseSequence, r)
			}
		}

		opts.logger().Debug("resolved collapse chains",
			zap.Int("collapses", len(collapses)),
			zap.Int("removed", len(removed)),
			zap.Int("passes", pass))
		return cur, pass, nil
	}

	return nil, bound, fmt.Errorf("%w: no fixed point after %d passes", ErrMalformedCollapseSequence, bound)
}
