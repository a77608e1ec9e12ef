// Package config holds the runtime configuration for the duplicate-folder
// pipeline. Values come from defaults, an optional YAML file, and
// FOLDERMATCH_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config controls pipeline parallelism and reporting. Parallelism is fixed
// for the duration of a run; callers reconfigure it between runs.
type Config struct {
	// Workers is the bounded worker-pool size used for per-folder stat
	// collection and per-group hash verification.
	// Default: logical processors - 1, minimum 1. Range: 1-256
	Workers int `yaml:"workers"`

	// ProgressEvery is the item granularity for progress reports; loops
	// also check cancellation at least this often.
	// Default: 50. Range: 1-100000
	ProgressEvery int `yaml:"progress_every"`

	// MinFileSize excludes files below this byte size from duplicate
	// candidacy. Default: 0 (no minimum)
	MinFileSize int64 `yaml:"min_file_size"`

	// HashDBPath is the durable hash-cache database. Empty disables the
	// durable cache; the in-memory store still works.
	// Default: "" (disabled)
	HashDBPath string `yaml:"hash_db_path"`

	// LargeResultWarning is the match count past which aggregation flags
	// the result set as a performance concern (never an error).
	// Default: 1000000
	LargeResultWarning int `yaml:"large_result_warning"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	return Config{
		Workers:            workers,
		ProgressEvery:      50,
		MinFileSize:        0,
		HashDBPath:         "",
		LargeResultWarning: 1000000,
	}
}

// LoadFile overlays settings from a YAML file onto cfg. A missing file is
// not an error; a malformed one is.
func LoadFile(cfg Config, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromEnv overlays FOLDERMATCH_* environment variables onto cfg and
// validates the result.
func LoadFromEnv(cfg Config) (Config, error) {
	if v := os.Getenv("FOLDERMATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FOLDERMATCH_WORKERS %q: %w", v, err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("FOLDERMATCH_PROGRESS_EVERY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FOLDERMATCH_PROGRESS_EVERY %q: %w", v, err)
		}
		cfg.ProgressEvery = n
	}
	if v := os.Getenv("FOLDERMATCH_MIN_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FOLDERMATCH_MIN_FILE_SIZE %q: %w", v, err)
		}
		cfg.MinFileSize = n
	}
	if v := os.Getenv("FOLDERMATCH_HASH_DB"); v != "" {
		cfg.HashDBPath = v
	}
	if v := os.Getenv("FOLDERMATCH_LARGE_RESULT_WARNING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid FOLDERMATCH_LARGE_RESULT_WARNING %q: %w", v, err)
		}
		cfg.LargeResultWarning = n
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks all ranges.
func (c Config) Validate() error {
	if c.Workers < 1 || c.Workers > 256 {
		return fmt.Errorf("workers must be between 1 and 256 (got %d)", c.Workers)
	}
	if c.ProgressEvery < 1 || c.ProgressEvery > 100000 {
		return fmt.Errorf("progress_every must be between 1 and 100000 (got %d)", c.ProgressEvery)
	}
	if c.MinFileSize < 0 {
		return fmt.Errorf("min_file_size cannot be negative (got %d)", c.MinFileSize)
	}
	if c.LargeResultWarning < 1 {
		return fmt.Errorf("large_result_warning must be positive (got %d)", c.LargeResultWarning)
	}
	return nil
}
