// Package formats reads and writes the files the replay tools work with:
// Wavefront OBJ meshes, recorded collapse histories and index mappings.
package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/meshreplay/pkg/replay"
)

// OBJ format errors.
var (
	ErrInvalidOBJ = errors.New("invalid OBJ data")
)

// Mesh is a triangle mesh. Indices are stored 64-bit wide so any OBJ file
// can be represented; use Triangles to obtain a narrower copy.
type Mesh struct {
	Points    []mgl32.Vec3
	Faces     []replay.Triangle[uint64]
	Comments  []string
	Polygons  int // faces as declared in the file, before triangulation
	LineCount int
}

// FitsUint32 reports whether every point can be addressed by a 32-bit index.
func (m *Mesh) FitsUint32() bool {
	return uint64(len(m.Points)) <= math.MaxUint32+1
}

// Triangles returns the faces converted to the index type I.
func Triangles[I replay.Index](m *Mesh) []replay.Triangle[I] {
	out := make([]replay.Triangle[I], len(m.Faces))
	for i, f := range m.Faces {
		out[i] = replay.Triangle[I]{I(f[0]), I(f[1]), I(f[2])}
	}
	return out
}

// Bounds returns the axis aligned bounding box of the points.
func (m *Mesh) Bounds() (lo, hi mgl32.Vec3) {
	if len(m.Points) == 0 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	lo, hi = m.Points[0], m.Points[0]
	for _, p := range m.Points[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = min(lo[k], p[k])
			hi[k] = max(hi[k], p[k])
		}
	}
	return lo, hi
}

// Diagonal returns the length of the bounding box diagonal.
func (m *Mesh) Diagonal() float32 {
	lo, hi := m.Bounds()
	return hi.Sub(lo).Len()
}

// ParseOBJ parses the vertex and face records of an OBJ file. Polygons are
// fan triangulated; texture and normal references are ignored. Gzip
// compressed input is detected and decompressed.
func ParseOBJ(data []byte) (*Mesh, error) {
	data, err := maybeGunzip(data)
	if err != nil {
		return nil, err
	}

	mesh := &Mesh{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		mesh.LineCount++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if comment, ok := strings.CutPrefix(line, "#"); ok {
			if mesh.Polygons == 0 && len(mesh.Points) == 0 {
				mesh.Comments = append(mesh.Comments, strings.TrimSpace(comment))
			}
			continue
		}

		keyword, rest := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			keyword, rest = line[:i], line[i+1:]
		}
		switch keyword {
		case "v":
			p, err := parseVertex(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, mesh.LineCount, err)
			}
			mesh.Points = append(mesh.Points, p)
		case "f":
			if err := mesh.parseFace(rest); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJ, mesh.LineCount, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	n := uint64(len(mesh.Points))
	for i, f := range mesh.Faces {
		for _, v := range f {
			if v >= n {
				return nil, fmt.Errorf("%w: face %d references vertex %d of %d", ErrInvalidOBJ, i, v+1, n)
			}
		}
	}
	return mesh, nil
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(data)
}

func parseVertex(s string) (mgl32.Vec3, error) {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return mgl32.Vec3{}, fmt.Errorf("vertex needs 3 coordinates, got %d", len(fields))
	}
	var p mgl32.Vec3
	for k := 0; k < 3; k++ {
		f, err := strconv.ParseFloat(fields[k], 32)
		if err != nil {
			return mgl32.Vec3{}, err
		}
		p[k] = float32(f)
	}
	return p, nil
}

// parseFace appends the fan triangulation of a face record. Indices are
// 1-based, negative ones count back from the last declared vertex.
func (m *Mesh) parseFace(s string) error {
	fields := strings.Fields(s)
	if len(fields) < 3 {
		return fmt.Errorf("face needs 3 vertices, got %d", len(fields))
	}

	indices := make([]uint64, len(fields))
	for i, field := range fields {
		ref, _, _ := strings.Cut(field, "/")
		v, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return err
		}
		switch {
		case v > 0:
			indices[i] = uint64(v - 1)
		case v < 0 && -v <= int64(len(m.Points)):
			indices[i] = uint64(int64(len(m.Points)) + v)
		default:
			return fmt.Errorf("invalid vertex reference %q", field)
		}
	}

	m.Polygons++
	for i := 1; i+1 < len(indices); i++ {
		m.Faces = append(m.Faces, replay.Triangle[uint64]{indices[0], indices[i], indices[i+1]})
	}
	return nil
}

// WriteOBJ writes the points and triangles as OBJ records. It returns the
// number of lines written.
func WriteOBJ[I replay.Index](w io.Writer, points []mgl32.Vec3, triangles []replay.Triangle[I], comments ...string) (int, error) {
	bw := bufio.NewWriter(w)
	lines := 0

	for _, c := range comments {
		fmt.Fprintf(bw, "# %s\n", c)
		lines++
	}

	fmt.Fprintf(bw, "# vertices [%d]\n", len(points))
	lines++
	for _, p := range points {
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2]))
		lines++
	}

	fmt.Fprintf(bw, "# triangles [%d]\n", len(triangles))
	lines++
	for _, t := range triangles {
		fmt.Fprintf(bw, "f %d %d %d\n", uint64(t[0])+1, uint64(t[1])+1, uint64(t[2])+1)
		lines++
	}

	return lines, bw.Flush()
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
