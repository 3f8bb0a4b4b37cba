package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/Faultbox/meshreplay/internal/config"
	"github.com/Faultbox/meshreplay/internal/logger"
	"github.com/Faultbox/meshreplay/pkg/formats"
	"github.com/Faultbox/meshreplay/pkg/replay"
)

func cmdReplay(args []string) error {
	s, err := start("replay", args, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.fs.NArg() < 2 {
		return usage("replay [options] <mesh.obj> <collapses>")
	}
	meshPath, historyPath := s.fs.Arg(0), s.fs.Arg(1)

	started := time.Now()
	mesh, history, err := s.loadInputs(meshPath, historyPath)
	if err != nil {
		return err
	}

	out := job{
		prefix:  s.cfg.Replay.Prefix,
		objPath: s.outputPath(meshPath, ".replayed.obj"),
	}
	if s.cfg.Output.Mapping {
		out.mapPath = s.outputPath(meshPath, ".mapping.txt")
	}

	summary, err := s.run(mesh, history, out)
	if err != nil {
		return err
	}

	s.log.Info("replay written",
		zap.String("mesh", out.objPath),
		zap.Int("points", summary.points),
		zap.Int("triangles", summary.triangles),
		zap.Duration("elapsed", time.Since(started)),
		logger.Stats(summary.stats))
	if out.mapPath != "" {
		s.log.Info("mapping written", zap.String("path", out.mapPath))
	}
	return nil
}

func cmdLods(args []string) error {
	var noProgress bool
	s, err := start("lods", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&noProgress, "no-progress", false, "No progress bar")
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.fs.NArg() < 2 {
		return usage("lods [options] <mesh.obj> <collapses>")
	}
	meshPath, historyPath := s.fs.Arg(0), s.fs.Arg(1)

	mesh, history, err := s.loadInputs(meshPath, historyPath)
	if err != nil {
		return err
	}

	total := len(history.Collapses)
	if s.cfg.Replay.Prefix >= 0 {
		total = min(total, s.cfg.Replay.Prefix)
	}
	prefixes := levelPrefixes(total, s.cfg.Replay.Levels)

	var bar *pb.ProgressBar
	if !noProgress {
		bar = pb.New(len(prefixes)).Prefix("  - levels ")
		bar.Output = os.Stderr
		bar.ShowTimeLeft = false
		bar.Start()
	}

	for level, prefix := range prefixes {
		out := job{
			prefix:  prefix,
			objPath: s.outputPath(meshPath, fmt.Sprintf(".lod%d.obj", level+1)),
		}
		if s.cfg.Output.Mapping {
			out.mapPath = s.outputPath(meshPath, fmt.Sprintf(".lod%d.mapping.txt", level+1))
		}

		summary, err := s.run(mesh, history, out)
		if err != nil {
			if bar != nil {
				bar.Finish()
			}
			return fmt.Errorf("level %d (%d collapses): %w", level+1, prefix, err)
		}
		s.log.Debug("level written",
			zap.Int("level", level+1),
			zap.String("mesh", out.objPath),
			zap.Int("points", summary.points),
			zap.Int("isolated", summary.stats.Isolated))
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}

	s.log.Info("levels written", zap.Int("levels", len(prefixes)), zap.Ints("prefixes", prefixes))
	return nil
}

// levelPrefixes spreads levels prefix lengths evenly over (0, total].
func levelPrefixes(total, levels int) []int {
	prefixes := make([]int, 0, levels)
	for i := 1; i <= levels; i++ {
		p := int(math.Round(float64(total) * float64(i) / float64(levels)))
		if len(prefixes) > 0 && prefixes[len(prefixes)-1] == p {
			continue
		}
		prefixes = append(prefixes, p)
	}
	return prefixes
}

func cmdMapping(args []string) error {
	s, err := start("mapping", args, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.fs.NArg() < 2 {
		return usage("mapping [options] <collapses> <n_points|mesh.obj>")
	}

	history, err := formats.LoadCollapsesFile(s.fs.Arg(0))
	if err != nil {
		return err
	}

	n, err := strconv.Atoi(s.fs.Arg(1))
	if err != nil {
		mesh, err := formats.ParseOBJFile(s.fs.Arg(1))
		if err != nil {
			return err
		}
		n = len(mesh.Points)
	}

	if uint64(n) <= math.MaxUint32+1 && history.MaxIndex() <= math.MaxUint32 {
		return writeMapping[uint32](s, history, n)
	}
	return writeMapping[uint64](s, history, n)
}

func writeMapping[I replay.Index](s *session, history *formats.CollapseFile, n int) error {
	collapses, err := formats.Collapses[I](history)
	if err != nil {
		return err
	}
	if p := s.cfg.Replay.Prefix; p >= 0 && p < len(collapses) {
		collapses = collapses[:p]
	}

	opts := s.cfg.Options()
	opts.Logger = s.log.Named("engine")
	mapping, err := replay.ResolveMapping(collapses, n, opts)
	if err != nil {
		return err
	}
	return formats.WriteMapping(os.Stdout, mapping)
}

func cmdInfo(args []string) error {
	s, err := start("info", args, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.fs.NArg() < 1 {
		return usage("info <mesh.obj> [collapses]")
	}

	mesh, err := formats.ParseOBJFile(s.fs.Arg(0))
	if err != nil {
		return err
	}
	lo, hi := mesh.Bounds()

	fmt.Printf("Mesh:       %s\n", s.fs.Arg(0))
	fmt.Printf("Points:     %d\n", len(mesh.Points))
	fmt.Printf("Polygons:   %d\n", mesh.Polygons)
	fmt.Printf("Triangles:  %d\n", len(mesh.Faces))
	fmt.Printf("Bounds:     [%g %g %g] - [%g %g %g]\n", lo[0], lo[1], lo[2], hi[0], hi[1], hi[2])
	fmt.Printf("Diagonal:   %g\n", mesh.Diagonal())

	if s.fs.NArg() < 2 {
		return nil
	}

	history, err := formats.LoadCollapsesFile(s.fs.Arg(1))
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("Collapses:  %d\n", len(history.Collapses))
	fmt.Printf("Version:    %s\n", history.Version)
	fmt.Printf("Width:      %d bytes\n", history.Width)
	fmt.Printf("Max index:  %d\n", history.MaxIndex())

	collapses, err := formats.Collapses[uint64](history)
	if err != nil {
		return err
	}
	m, passes, err := replay.ResolveChains(collapses, len(mesh.Points), s.cfg.Options())
	if err != nil {
		fmt.Printf("Status:     invalid (%v)\n", err)
		return nil
	}
	kept := 0
	for i, root := range m {
		if root == uint64(i) {
			kept++
		}
	}
	fmt.Printf("Passes:     %d\n", passes)
	fmt.Printf("Kept:       %d (%.1f%%)\n", kept, 100*float64(kept)/float64(max(len(mesh.Points), 1)))
	return nil
}

func cmdConfig(args []string) error {
	s, err := start("config", args, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.fs.NArg() > 0 {
		if err := s.cfg.SaveTo(s.fs.Arg(0)); err != nil {
			return err
		}
		s.log.Info("config written", zap.String("path", s.fs.Arg(0)))
		return nil
	}
	if err := s.cfg.Save(); err != nil {
		return err
	}
	s.log.Info("config written", zap.String("dir", config.ConfigDir()))
	return nil
}

// loadInputs parses the mesh and the collapse history.
func (s *session) loadInputs(meshPath, historyPath string) (*formats.Mesh, *formats.CollapseFile, error) {
	pre := time.Now()
	mesh, err := formats.ParseOBJFile(meshPath)
	if err != nil {
		return nil, nil, err
	}
	s.log.Debug("mesh parsed",
		zap.String("path", meshPath),
		zap.Int("points", len(mesh.Points)),
		zap.Int("triangles", len(mesh.Faces)),
		zap.Duration("elapsed", time.Since(pre)))

	pre = time.Now()
	history, err := formats.LoadCollapsesFile(historyPath)
	if err != nil {
		return nil, nil, err
	}
	s.log.Debug("collapses parsed",
		zap.String("path", historyPath),
		zap.Int("collapses", len(history.Collapses)),
		zap.Duration("elapsed", time.Since(pre)))
	return mesh, history, nil
}

// outputPath derives an output file name from the input mesh path.
func (s *session) outputPath(input, suffix string) string {
	dir := s.cfg.Output.Dir
	if dir == "" {
		dir = filepath.Dir(input)
	}

	base := strings.TrimSuffix(filepath.Base(input), ".gz")
	base = strings.TrimSuffix(base, filepath.Ext(base))

	path := filepath.Join(dir, base+suffix)
	if formats.IsGzipLevel(s.cfg.Output.Gzip) {
		path += ".gz"
	}
	return path
}
