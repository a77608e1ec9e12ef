package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/foldermatch/foldermatch/internal/cache"
	"github.com/foldermatch/foldermatch/internal/project"
)

var statusCmd = &cobra.Command{
	Use:   "status <project-file>",
	Short: "Show what a saved project file contains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !project.IsValidProjectFile(path) {
			return fmt.Errorf("%s is not a valid project file", path)
		}

		data, err := project.Load(path)
		if err != nil {
			return err
		}
		store := cache.NewStore()
		store.LoadProjectData(data)

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("%s\n", cyan("=== Project: "+path+" ==="))
		if data.ApplicationName == "" {
			fmt.Println("Format:        legacy (will be normalized on next save)")
		} else {
			fmt.Printf("Format:        %s, schema %s\n", data.ApplicationName, data.Version)
		}
		fmt.Printf("Created:       %s\n", data.CreatedDate.Format("2006-01-02 15:04:05"))
		fmt.Printf("Scan folders:  %d\n", len(data.ScanFolders))
		for _, f := range data.ScanFolders {
			fmt.Printf("  %s\n", f)
		}
		fmt.Printf("Cached folders:    %d\n", store.FolderCount())
		fmt.Printf("Cached hashes:     %d\n", store.FileHashCount())
		fmt.Printf("Rebuilt metadata:  %d (files still present on disk)\n", store.FileMetadataCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
