package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/foldermatch/foldermatch/internal/cache"
	"github.com/foldermatch/foldermatch/internal/policy"
	"github.com/foldermatch/foldermatch/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan <root>...",
	Short: "Scan folder hierarchies and report what was cached",
	Args:  cobra.MinimumNArgs(1),
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

		for _, root := range args {
			folders, err := scan.ScanFolderHierarchy(ctx, root, progressSink())
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d folders\n", root, len(folders))
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s %d folders cached\n", green("✓"), store.FolderCount())
		printErrorSummary(pol.Summary())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

// printErrorSummary renders the policy's accumulated skip counts.
func printErrorSummary(sum policy.ErrorSummary) {
	total := sum.SkippedFiles + sum.PermissionErrors + sum.NetworkErrors + sum.ResourceErrors
	if total == 0 {
		return
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Printf("%s %d items skipped (%d permission, %d network, %d resource)\n",
		yellow("!"), total, sum.PermissionErrors, sum.NetworkErrors, sum.ResourceErrors)
	if flagVerbose {
		for _, item := range sum.SkippedItems {
			fmt.Fprintf(os.Stderr, "  skipped %s: %s\n", item.Path, item.Reason)
		}
	}
}
