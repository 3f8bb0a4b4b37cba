package replay

// Prune deletes the rows listed in removed from points and renumbers the
// indices in triangles and mapping accordingly. Neither triangles nor mapping
// may still reference a removed row.
//
// Rather than deleting rows one at a time from the highest index down, it
// builds a single shift table, shift[i] being the number of removed rows
// below i, and subtracts it from every index. Both orders give the same
// numbering.
func Prune[I Index](points []Point, triangles []Triangle[I], mapping []I, removed []I, opts Options) ([]Point, []Triangle[I], []I) {
	drop := make([]bool, len(points))
	for _, r := range removed {
		drop[r] = true
	}

	shift := make([]I, len(points))
	outPoints := make([]Point, 0, len(points))
	var dropped I
	for i, p := range points {
		shift[i] = dropped
		if drop[i] {
			dropped++
			continue
		}
		outPoints = append(outPoints, p)
	}

	workers := opts.workers()
	outTriangles := make([]Triangle[I], len(triangles))
	parallelFor(len(triangles), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			t := triangles[i]
			outTriangles[i] = Triangle[I]{t[0] - shift[t[0]], t[1] - shift[t[1]], t[2] - shift[t[2]]}
		}
	})

	outMapping := make([]I, len(mapping))
	parallelFor(len(mapping), workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			outMapping[i] = mapping[i] - shift[mapping[i]]
		}
	})

	return outPoints, outTriangles, outMapping
}
