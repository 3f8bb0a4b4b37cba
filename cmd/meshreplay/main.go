// meshreplay rebuilds decimated meshes from recorded collapse histories.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/Faultbox/meshreplay/internal/config"
	"github.com/Faultbox/meshreplay/internal/logger"
)

var (
	Version     string
	VersionHash string
)

var errUsage = errors.New("usage")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "replay", "r":
		err = cmdReplay(args)
	case "lods":
		err = cmdLods(args)
	case "mapping", "map":
		err = cmdMapping(args)
	case "info":
		err = cmdInfo(args)
	case "config":
		err = cmdConfig(args)
	case "version":
		fmt.Printf("meshreplay %s\n", getVersion())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshreplay - replay recorded mesh decimation

Usage:
  meshreplay <command> [options] <args>

Commands:
  replay <mesh.obj> <collapses>      Replay collapses (or a prefix) and write the mesh
  lods <mesh.obj> <collapses>        Write a series of detail levels
  mapping <collapses> <n|mesh.obj>   Print the original to decimated index mapping
  info <mesh.obj> [collapses]        Show mesh and collapse history information
  config [path]                      Write the effective configuration
  version                            Print version

Options (all commands):
  -config <file>   -debug   -log-file <file>   -workers N   -max-passes N
  -strategy edge-order|lowest-neighbor   -prefix N   -levels N
  -out <dir>   -gzip 1-9   -mapping   -cpu-profile

Examples:
  meshreplay replay bunny.obj bunny.clps
  meshreplay replay -prefix 500 -mapping bunny.obj bunny.clps
  meshreplay lods -levels 5 -out lods/ bunny.obj bunny.clps
  meshreplay mapping bunny.clps bunny.obj > mapping.txt`)
}

func getVersion() string {
	if Version == "" {
		return "dev"
	}
	return fmt.Sprintf("v%s (%s)", Version, VersionHash)
}

// session is the state shared by a single command run.
type session struct {
	fs  *flag.FlagSet
	cfg *config.Config
	log *zap.Logger

	profiler interface{ Stop() }
}

// start parses args, loads the configuration and sets up logging and
// profiling. Callers must defer Close.
func start(name string, args []string, extra func(fs *flag.FlagSet)) (*session, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(fs, flags)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	s := &session{fs: fs, cfg: cfg, log: logger.Named(name)}
	if cfg.Profile.CPU {
		s.profiler = profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Profile.Dir), profile.Quiet)
	}

	logger.Sugar.Debugf("Config: %+v", cfg)
	return s, nil
}

// Close stops profiling and flushes the logger.
func (s *session) Close() {
	if s.profiler != nil {
		s.profiler.Stop()
		s.log.Info("cpu profile written", zap.String("dir", s.cfg.Profile.Dir))
	}
	logger.Sync()
}

// usage prints a command's usage line and returns errUsage.
func usage(line string) error {
	fmt.Fprintln(os.Stderr, "Usage: meshreplay "+line)
	return errUsage
}
