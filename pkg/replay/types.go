package replay

import (
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// Index is the vertex index type. Use uint64 when the point count may exceed
// the 32-bit range.
type Index interface {
	~uint32 | ~uint64
}

// Point is a single vertex position.
type Point = mgl32.Vec3

// Triangle is an ordered triple of point indices.
type Triangle[I Index] [3]I

// Edge is an unordered pair of point indices.
type Edge[I Index] [2]I

// Collapse records that vertex [1] (removed) was merged into vertex [0] (keep).
type Collapse[I Index] [2]I

// Keep returns the surviving vertex of the collapse.
func (c Collapse[I]) Keep() I { return c[0] }

// Removed returns the vertex that was merged away.
func (c Collapse[I]) Removed() I { return c[1] }

// IsDegenerate reports whether any two indices of the triangle coincide.
func (t Triangle[I]) IsDegenerate() bool {
	return t[0] == t[1] || t[1] == t[2] || t[0] == t[2]
}

// RepairStrategy selects how an isolated vertex picks its merge target.
type RepairStrategy int

// Repair strategies.
const (
	// RepairEdgeOrder picks the first qualifying neighbor in edge-list order.
	RepairEdgeOrder RepairStrategy = iota
	// RepairLowestNeighbor picks the qualifying neighbor with the lowest index.
	RepairLowestNeighbor
)

// String returns the strategy name used in configuration files.
func (s RepairStrategy) String() string {
	switch s {
	case RepairEdgeOrder:
		return "edge-order"
	case RepairLowestNeighbor:
		return "lowest-neighbor"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ParseRepairStrategy converts a strategy name to a RepairStrategy.
func ParseRepairStrategy(name string) (RepairStrategy, error) {
	switch name {
	case "", "edge-order":
		return RepairEdgeOrder, nil
	case "lowest-neighbor":
		return RepairLowestNeighbor, nil
	default:
		return 0, fmt.Errorf("unknown repair strategy %q", name)
	}
}

// Options tunes a replay call. The zero value is ready to use.
type Options struct {
	// Workers bounds the goroutines used by the parallel stages.
	// Zero means runtime.NumCPU().
	Workers int
	// MaxPasses bounds chain resolution. Zero derives a bound from the point count.
	MaxPasses int
	Strategy  RepairStrategy
	Logger    *zap.Logger
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// Widen converts 32-bit triangles to 64-bit ones.
func Widen(triangles []Triangle[uint32]) []Triangle[uint64] {
	out := make([]Triangle[uint64], len(triangles))
	for i, t := range triangles {
		out[i] = Triangle[uint64]{uint64(t[0]), uint64(t[1]), uint64(t[2])}
	}
	return out
}

// WidenCollapses converts 32-bit collapses to 64-bit ones.
func WidenCollapses(collapses []Collapse[uint32]) []Collapse[uint64] {
	out := make([]Collapse[uint64], len(collapses))
	for i, c := range collapses {
		out[i] = Collapse[uint64]{uint64(c[0]), uint64(c[1])}
	}
	return out
}
