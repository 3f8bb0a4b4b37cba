package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/Faultbox/meshreplay/pkg/formats"
	"github.com/Faultbox/meshreplay/pkg/replay"
)

// job describes one replay and where its output goes.
type job struct {
	prefix  int // negative replays the whole history
	objPath string
	mapPath string
}

type summary struct {
	points    int
	triangles int
	stats     replay.Stats
}

// run replays history onto mesh using 32-bit indices whenever both inputs fit.
func (s *session) run(mesh *formats.Mesh, history *formats.CollapseFile, j job) (summary, error) {
	if err := os.MkdirAll(filepath.Dir(j.objPath), 0755); err != nil {
		return summary{}, err
	}
	if mesh.FitsUint32() && history.MaxIndex() <= math.MaxUint32 {
		return replayInto[uint32](s, mesh, history, j)
	}
	return replayInto[uint64](s, mesh, history, j)
}

func replayInto[I replay.Index](s *session, mesh *formats.Mesh, history *formats.CollapseFile, j job) (summary, error) {
	collapses, err := formats.Collapses[I](history)
	if err != nil {
		return summary{}, err
	}

	req := replay.Request[I]{
		Points:    mesh.Points,
		Triangles: formats.Triangles[I](mesh),
		Collapses: collapses,
	}
	if j.prefix >= 0 {
		req = req.Prefix(j.prefix)
	}

	opts := s.cfg.Options()
	opts.Logger = s.log.Named("engine")
	res, err := replay.Replay(req, opts)
	if err != nil {
		return summary{}, err
	}

	comment := fmt.Sprintf("meshreplay %s: %d of %d collapses, %d isolated vertices merged",
		getVersion(), len(req.Collapses), len(history.Collapses), len(res.Isolated))
	err = formats.WriteFile(j.objPath, s.cfg.Output.Gzip, func(w io.Writer) error {
		_, err := formats.WriteOBJ(w, res.Points, res.Triangles, comment)
		return err
	})
	if err != nil {
		return summary{}, fmt.Errorf("writing %s: %w", j.objPath, err)
	}

	if j.mapPath != "" {
		err = formats.WriteFile(j.mapPath, s.cfg.Output.Gzip, func(w io.Writer) error {
			return formats.WriteMapping(w, res.Mapping)
		})
		if err != nil {
			return summary{}, fmt.Errorf("writing %s: %w", j.mapPath, err)
		}
	}

	return summary{
		points:    len(res.Points),
		triangles: len(res.Triangles),
		stats:     res.Stats,
	}, nil
}
