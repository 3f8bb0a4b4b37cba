package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/meshreplay/pkg/replay"
)

// Collapse file errors.
var (
	ErrInvalidCollapseMagic       = errors.New("invalid collapse file magic: expected 'CLPS'")
	ErrUnsupportedCollapseVersion = errors.New("unsupported collapse file version")
	ErrTruncatedCollapseData      = errors.New("truncated collapse data")
	ErrInvalidCollapseText        = errors.New("invalid collapse text")
)

const (
	collapseMagic      = "CLPS"
	collapseHeaderSize = 16
)

// CollapseVersion is the collapse file version.
type CollapseVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v CollapseVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// CurrentCollapseVersion is written by WriteCollapses.
var CurrentCollapseVersion = CollapseVersion{Major: 1, Minor: 0}

// CollapseFile is a recorded collapse history.
//
// Binary layout, little endian:
//
//	magic   [4]byte "CLPS"
//	minor   uint8
//	major   uint8
//	width   uint8   index width in bytes, 4 or 8
//	_       uint8
//	count   uint64
//	pairs   count * (keep, removed), each width bytes
type CollapseFile struct {
	Version   CollapseVersion
	Width     uint8
	Collapses []replay.Collapse[uint64]
}

// MaxIndex returns the largest vertex index referenced by the history.
func (f *CollapseFile) MaxIndex() uint64 {
	var m uint64
	for _, c := range f.Collapses {
		m = max(m, c[0], c[1])
	}
	return m
}

// collapseHeader is the fixed part of a binary collapse file.
type collapseHeader struct {
	Magic [4]byte
	Minor uint8
	Major uint8
	Width uint8
	_     uint8
	Count uint64
}

// ParseCollapses parses a binary collapse file.
func ParseCollapses(data []byte) (*CollapseFile, error) {
	if len(data) < collapseHeaderSize {
		return nil, ErrTruncatedCollapseData
	}

	r := bytes.NewReader(data)

	var hdr collapseHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if string(hdr.Magic[:]) != collapseMagic {
		return nil, ErrInvalidCollapseMagic
	}

	version := CollapseVersion{Major: hdr.Major, Minor: hdr.Minor}
	if version.Major != 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCollapseVersion, version)
	}
	if hdr.Width != 4 && hdr.Width != 8 {
		return nil, fmt.Errorf("invalid collapse index width: %d", hdr.Width)
	}
	if uint64(r.Len())/uint64(2*hdr.Width) < hdr.Count {
		return nil, fmt.Errorf("%w: expected %d pairs", ErrTruncatedCollapseData, hdr.Count)
	}

	f := &CollapseFile{
		Version:   version,
		Width:     hdr.Width,
		Collapses: make([]replay.Collapse[uint64], hdr.Count),
	}
	if hdr.Width == 8 {
		if err := binary.Read(r, binary.LittleEndian, f.Collapses); err != nil {
			return nil, fmt.Errorf("reading pairs: %w", err)
		}
		return f, nil
	}

	pairs := make([][2]uint32, hdr.Count)
	if err := binary.Read(r, binary.LittleEndian, pairs); err != nil {
		return nil, fmt.Errorf("reading pairs: %w", err)
	}
	for i, p := range pairs {
		f.Collapses[i] = replay.Collapse[uint64]{uint64(p[0]), uint64(p[1])}
	}
	return f, nil
}

// ParseCollapsesText parses one "keep removed" pair per line. Pairs may also
// be separated by a comma; '#' starts a comment.
func ParseCollapsesText(data []byte) ([]replay.Collapse[uint64], error) {
	var collapses []replay.Collapse[uint64]
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text, _, _ := strings.Cut(scanner.Text(), "#")
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected 2 indices, got %d", ErrInvalidCollapseText, line, len(fields))
		}
		keep, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCollapseText, line, err)
		}
		removed, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCollapseText, line, err)
		}
		collapses = append(collapses, replay.Collapse[uint64]{keep, removed})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading collapse text: %w", err)
	}
	return collapses, nil
}

// LoadCollapses reads a collapse history from raw bytes, binary or text.
func LoadCollapses(data []byte) (*CollapseFile, error) {
	data, err := maybeGunzip(data)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, []byte(collapseMagic)) {
		return ParseCollapses(data)
	}

	collapses, err := ParseCollapsesText(data)
	if err != nil {
		return nil, err
	}
	f := &CollapseFile{Version: CurrentCollapseVersion, Collapses: collapses}
	f.Width = 4
	if f.MaxIndex() > 0xFFFFFFFF {
		f.Width = 8
	}
	return f, nil
}

// LoadCollapsesFile reads a collapse history from disk.
func LoadCollapsesFile(path string) (*CollapseFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading collapse file: %w", err)
	}
	return LoadCollapses(data)
}

// WriteCollapses writes collapses in the binary format, choosing the
// narrowest index width that holds every index.
func WriteCollapses[I replay.Index](w io.Writer, collapses []replay.Collapse[I]) error {
	var width uint8 = 4
	for _, c := range collapses {
		if uint64(c[0]) > 0xFFFFFFFF || uint64(c[1]) > 0xFFFFFFFF {
			width = 8
			break
		}
	}

	header := make([]byte, collapseHeaderSize)
	copy(header, collapseMagic)
	header[4] = CurrentCollapseVersion.Minor
	header[5] = CurrentCollapseVersion.Major
	header[6] = width
	binary.LittleEndian.PutUint64(header[8:], uint64(len(collapses)))

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header); err != nil {
		return err
	}

	buf := make([]byte, 2*width)
	for _, c := range collapses {
		if width == 4 {
			binary.LittleEndian.PutUint32(buf, uint32(c[0]))
			binary.LittleEndian.PutUint32(buf[4:], uint32(c[1]))
		} else {
			binary.LittleEndian.PutUint64(buf, uint64(c[0]))
			binary.LittleEndian.PutUint64(buf[8:], uint64(c[1]))
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Collapses returns the history converted to the index type I. It fails if
// an index does not fit.
func Collapses[I replay.Index](f *CollapseFile) ([]replay.Collapse[I], error) {
	limit := uint64(^I(0))
	out := make([]replay.Collapse[I], len(f.Collapses))
	for i, c := range f.Collapses {
		if c[0] > limit || c[1] > limit {
			return nil, fmt.Errorf("%w: collapse %d (%d, %d) exceeds the index range", replay.ErrShapeMismatch, i, c[0], c[1])
		}
		out[i] = replay.Collapse[I]{I(c[0]), I(c[1])}
	}
	return out, nil
}
