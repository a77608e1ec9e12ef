// Command foldermatch finds duplicate directory trees across a set of
// root folders and scores folder pairs by content similarity.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foldermatch/foldermatch/internal/config"
	"github.com/foldermatch/foldermatch/internal/types"
)

var rootCmd = &cobra.Command{
	Use:   "foldermatch",
	Short: "Find duplicate folders by file name, size, and content hash",
	Long: `foldermatch scans one or more root folders, finds files with identical
content across different folders, and scores folder pairs by a Jaccard
similarity over their direct file sets so you can decide which copy to keep.

Scan results are cached in memory and can be persisted to a project file,
so repeated analysis of the same trees does not re-read unchanged data.`,
	SilenceUsage: true,
}

var (
	flagWorkers int
	flagVerbose bool
	flagConfig  string
)

func init() {
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "worker pool size (default: logical processors - 1)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "print progress status lines")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file (default: ~/.foldermatch.yaml)")
}

// loadConfig layers defaults, the YAML config file, environment variables,
// and command-line flags, in that order.
func loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()

	path := flagConfig
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".foldermatch.yaml")
		}
	}
	if path != "" {
		var err error
		cfg, err = config.LoadFile(cfg, path)
		if err != nil {
			return cfg, err
		}
	}
	cfg, err := config.LoadFromEnv(cfg)
	if err != nil {
		return cfg, err
	}
	if flagWorkers > 0 {
		cfg.Workers = flagWorkers
	}
	return cfg, cfg.Validate()
}

// progressSink returns a sink printing status lines to stderr when
// --verbose is set, or nil otherwise.
func progressSink() types.ProgressSink {
	if !flagVerbose {
		return nil
	}
	return func(p types.Progress) {
		if p.Indeterminate || p.Max == 0 {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", p.Phase, p.Status)
			return
		}
		fmt.Fprintf(os.Stderr, "[%s] %s (%d/%d)\n", p.Phase, p.Status, p.Current, p.Max)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
