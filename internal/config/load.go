package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/meshreplay/pkg/replay"
)

// Load loads configuration with priority: defaults < file < flags.
// fs must already be parsed and must carry the flags from RegisterFlags.
func Load(fs *flag.FlagSet, f *Flags) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := f.ConfigPath
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	f.apply(fs, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be corrected silently.
func (c *Config) Validate() error {
	if c.Replay.Workers < 0 {
		return fmt.Errorf("replay.workers must not be negative, got %d", c.Replay.Workers)
	}
	if c.Output.Gzip < -1 || c.Output.Gzip > 9 {
		return fmt.Errorf("output.gzip must be -1 to 9, got %d", c.Output.Gzip)
	}
	if c.Replay.Levels < 1 {
		return fmt.Errorf("replay.levels must be positive, got %d", c.Replay.Levels)
	}
	if _, err := replay.ParseRepairStrategy(c.Replay.Strategy); err != nil {
		return fmt.Errorf("replay.strategy: %w", err)
	}
	return nil
}

// Options converts the replay section to engine options.
func (c *Config) Options() replay.Options {
	// Validate has already rejected unknown strategies.
	strategy, _ := replay.ParseRepairStrategy(c.Replay.Strategy)
	return replay.Options{
		Workers:   c.Replay.Workers,
		MaxPasses: c.Replay.MaxPasses,
		Strategy:  strategy,
	}
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./meshreplay.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "meshreplay")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "meshreplay")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "meshreplay")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "meshreplay")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
