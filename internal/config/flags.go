package config

import "flag"

// Flags holds the command-line overrides shared by every subcommand.
type Flags struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	Workers    int
	MaxPasses  int
	Strategy   string
	Prefix     int
	Levels     int
	OutDir     string
	Gzip       int
	Mapping    bool
	CPUProfile bool
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.ConfigPath, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log-file", "", "Also write logs to this file")
	fs.IntVar(&f.Workers, "workers", 0, "Worker goroutines (0 = one per CPU)")
	fs.IntVar(&f.MaxPasses, "max-passes", 0, "Chain resolution pass limit (0 = automatic)")
	fs.StringVar(&f.Strategy, "strategy", "", "Isolated vertex repair: edge-order or lowest-neighbor")
	fs.IntVar(&f.Prefix, "prefix", -1, "Replay only the first N collapses (-1 = all)")
	fs.IntVar(&f.Levels, "levels", 0, "Detail levels to write")
	fs.StringVar(&f.OutDir, "out", "", "Output directory")
	fs.IntVar(&f.Gzip, "gzip", -1, "Gzip level for output files, 1-9 (-1 = off)")
	fs.BoolVar(&f.Mapping, "mapping", false, "Also write the index mapping")
	fs.BoolVar(&f.CPUProfile, "cpu-profile", false, "Record a CPU profile")
	return f
}

// apply applies flags the user actually set to the config.
func (f *Flags) apply(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		set[fl.Name] = true
	})

	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if set["workers"] {
		cfg.Replay.Workers = f.Workers
	}
	if set["max-passes"] {
		cfg.Replay.MaxPasses = f.MaxPasses
	}
	if f.Strategy != "" {
		cfg.Replay.Strategy = f.Strategy
	}
	if set["prefix"] {
		cfg.Replay.Prefix = f.Prefix
	}
	if f.Levels > 0 {
		cfg.Replay.Levels = f.Levels
	}
	if f.OutDir != "" {
		cfg.Output.Dir = f.OutDir
	}
	if set["gzip"] {
		cfg.Output.Gzip = f.Gzip
	}
	if f.Mapping {
		cfg.Output.Mapping = true
	}
	if f.CPUProfile {
		cfg.Profile.CPU = true
	}
}
