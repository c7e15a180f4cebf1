package cmd

import (
	"fmt"

	"github.com/fairsailau/congabox2/internal/store"
	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show conversion run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(dataDir)
		if err != nil {
			return err
		}
		defer s.Close()

		total := s.RunCount()

		fmt.Printf("Conversion History\n")
		fmt.Printf("==================\n")
		fmt.Printf("Recorded runs: %d\n", total)

		if total == 0 {
			return nil
		}

		runs, err := s.ListRuns(statusLimit)
		if err != nil {
			return err
		}

		fmt.Printf("\nRecent Runs\n")
		fmt.Printf("-----------\n")
		for _, r := range runs {
			fmt.Printf("  #%-4d %-8s  %s  template: %s  mappings: %d  errors: %d\n",
				r.ID, r.Status, r.StartedAt, r.TemplateName, s.MappingCount(r.ID), s.ErrorCount(r.ID))
			if verbose && r.CSVPath != "" {
				fmt.Printf("        csv: %s\n", r.CSVPath)
			}
			if verbose && r.ArchivePath != "" {
				fmt.Printf("        zip: %s\n", r.ArchivePath)
			}
		}

		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "Number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}
