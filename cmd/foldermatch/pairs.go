package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/foldermatch/foldermatch/internal/analyzer"
	"github.com/foldermatch/foldermatch/internal/cache"
	"github.com/foldermatch/foldermatch/internal/compare"
	"github.com/foldermatch/foldermatch/internal/policy"
	"github.com/foldermatch/foldermatch/internal/project"
	"github.com/foldermatch/foldermatch/internal/types"
)

var pairsShowAll bool

var pairsCmd = &cobra.Command{
	Use:   "pairs <project-file> <left-folder> <right-folder>",
	Short: "Show the file-by-file comparison for one folder pair",
	Long: `Load a saved project file and print the detailed row comparison for one
folder pair: every unique file name on either side, with sizes, timestamps,
and duplicate marking. Duplicates are re-verified from the cached hashes.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		projectPath, left, right := args[0], args[1], args[2]

		data, err := project.Load(projectPath)
		if err != nil {
			return err
		}
		store := cache.NewStore()
		store.LoadProjectData(data)

		pol := policy.NewDefaultPolicy()
		ana := analyzer.New(store, pol, cfg)
		matches, err := ana.FindDuplicateFiles(context.Background(), []string{left, right}, progressSink())
		if err != nil {
			return err
		}

		rows := compare.BuildFileComparison(left, right, matches, store)
		rows = compare.FilterFileDetails(rows, pairsShowAll)
		if len(rows) == 0 {
			fmt.Println("No rows to show for this pair.")
			return nil
		}

		for _, row := range rows {
			printDetailRow(row)
		}
		return nil
	},
}

func init() {
	pairsCmd.Flags().BoolVar(&pairsShowAll, "all", false, "include files unique to one side")
	rootCmd.AddCommand(pairsCmd)
}

// printDetailRow renders one comparison row.
func printDetailRow(row types.FileDetailRow) {
	marker := " "
	if row.IsDuplicate {
		marker = color.New(color.FgRed).Sprint("=")
	}
	fmt.Printf("%s %-40s %12s | %12s\n", marker, row.Name,
		detailSide(row.Left), detailSide(row.Right))
}

// detailSide renders one side of a row.
func detailSide(side types.FileDetailSide) string {
	if !side.Present {
		return "-"
	}
	if !side.Available {
		return "n/a"
	}
	return formatSize(side.Size)
}
