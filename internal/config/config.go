// Package config handles meshreplay configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Replay  ReplayConfig  `yaml:"replay"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Profile ProfileConfig `yaml:"profile"`
}

// ReplayConfig holds engine settings.
type ReplayConfig struct {
	Workers   int    `yaml:"workers"`    // 0 = one per CPU
	MaxPasses int    `yaml:"max_passes"` // 0 = derived from the point count
	Strategy  string `yaml:"strategy"`   // edge-order or lowest-neighbor
	Prefix    int    `yaml:"prefix"`     // collapses to replay, -1 = all
	Levels    int    `yaml:"levels"`     // detail levels written by "lods"
}

// OutputConfig holds output file settings.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Gzip    int    `yaml:"gzip"` // 1-9 compresses, anything else disables
	Mapping bool   `yaml:"mapping"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	CPU bool   `yaml:"cpu"`
	Dir string `yaml:"dir"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Replay: ReplayConfig{
			Workers:   0,
			MaxPasses: 0,
			Strategy:  "edge-order",
			Prefix:    -1,
			Levels:    4,
		},
		Output: OutputConfig{
			Dir:     "",
			Gzip:    -1,
			Mapping: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Profile: ProfileConfig{
			CPU: false,
			Dir: ".",
		},
	}
}
