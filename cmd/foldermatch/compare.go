package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/foldermatch/foldermatch/internal/analyzer"
	"github.com/foldermatch/foldermatch/internal/cache"
	"github.com/foldermatch/foldermatch/internal/hashdb"
	"github.com/foldermatch/foldermatch/internal/policy"
	"github.com/foldermatch/foldermatch/internal/project"
	"github.com/foldermatch/foldermatch/internal/scanner"
	"github.com/foldermatch/foldermatch/internal/types"
)

var (
	compareMinSimilarity float64
	compareSavePath      string
	compareLimit         int
)

var compareCmd = &cobra.Command{
	Use:   "compare <root>...",
	Short: "Scan roots and report folder pairs with duplicate content",
	Long: `Scan each root folder, find files with identical content across
different folders, and print folder pairs ranked by similarity.

With --save the whole session (scan folders and caches) is written to a
project file for later inspection with "pairs" or "status".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		store := cache.NewStore()
		pol := policy.NewDefaultPolicy()
		scan := scanner.New(store, pol, cfg)
		ana := analyzer.New(store, pol, cfg)

		// Warm hashes from the durable cache when configured.
		var db *hashdb.DB
		if cfg.HashDBPath != "" {
			db, err = hashdb.Open(cfg.HashDBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if warmed, err := db.Warm(ctx, store); err == nil && flagVerbose {
				fmt.Fprintf(os.Stderr, "warmed %d hashes from %s\n", warmed, cfg.HashDBPath)
			}
		}

		var allFolders []string
		for _, root := range args {
			folders, err := scan.ScanFolderHierarchy(ctx, root, progressSink())
			if err != nil {
				return err
			}
			allFolders = append(allFolders, folders...)
		}

		matches, err := ana.FindDuplicateFiles(ctx, allFolders, progressSink())
		if err != nil {
			return err
		}
		pairs := ana.AggregateFolderMatches(matches, progressSink())
		analyzer.SortBySimilarity(pairs)

		if db != nil {
			if _, err := db.Record(ctx, store); err != nil {
				fmt.Fprintf(os.Stderr, "warning: hash cache not updated: %v\n", err)
			}
		}

		printed := 0
		for _, p := range pairs {
			if p.SimilarityPercentage < compareMinSimilarity {
				continue
			}
			if compareLimit > 0 && printed >= compareLimit {
				break
			}
			printFolderMatch(p)
			printed++
		}
		if printed == 0 {
			fmt.Println("No folder pairs above the similarity threshold.")
		}
		printErrorSummary(pol.Summary())

		if compareSavePath != "" {
			data := store.ExportProjectData(args)
			if err := project.Save(compareSavePath, data); err != nil {
				return err
			}
			fmt.Printf("Session saved to %s\n", compareSavePath)
		}
		return nil
	},
}

func init() {
	compareCmd.Flags().Float64Var(&compareMinSimilarity, "min-similarity", 0, "hide pairs below this similarity percentage")
	compareCmd.Flags().StringVar(&compareSavePath, "save", "", "write the session to a project file")
	compareCmd.Flags().IntVar(&compareLimit, "limit", 50, "maximum pairs to print (0 = no limit)")
	rootCmd.AddCommand(compareCmd)
}

// printFolderMatch renders one pair, color-coded by similarity.
func printFolderMatch(m types.FolderMatch) {
	paint := color.New(color.FgYellow).SprintfFunc()
	switch {
	case m.SimilarityPercentage >= 100:
		paint = color.New(color.FgRed, color.Bold).SprintfFunc()
	case m.SimilarityPercentage >= 75:
		paint = color.New(color.FgRed).SprintfFunc()
	case m.SimilarityPercentage < 25:
		paint = color.New(color.FgHiBlack).SprintfFunc()
	}

	fmt.Printf("%s  %s\n", paint("%5.1f%%", m.SimilarityPercentage), m.LeftFolder)
	fmt.Printf("        %s\n", m.RightFolder)
	fmt.Printf("        %d duplicate files, %s combined\n",
		len(m.DuplicateFiles), formatSize(m.FolderSizeBytes))
}

// formatSize renders a byte count in human-readable units.
func formatSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	case size < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(size)/(1024*1024*1024))
	}
}
