package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show tracked repositories and backup statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := buildEngine(newLogger(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		report := eng.Status()

		if statusJSON {
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Printf("Tracked repositories: %d\n", report.Tracked)
		if report.Disabled > 0 {
			fmt.Printf("Disabled:             %d\n", report.Disabled)
		}

		statuses := make([]string, 0, len(report.ByStatus))
		for status := range report.ByStatus {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			fmt.Printf("  %-12s %d\n", status, report.ByStatus[status])
		}

		fmt.Println("\nWatched paths:")
		for _, label := range report.WatchedPaths {
			fmt.Printf("  %s\n", label)
		}

		stats := report.Stats
		fmt.Println("\nStatistics:")
		fmt.Printf("  Successful backups: %d\n", stats.SuccessfulBackups)
		fmt.Printf("  Failed backups:     %d\n", stats.FailedBackups)
		fmt.Printf("  Repos created:      %d\n", stats.ReposCreated)
		fmt.Printf("  Last sweep:         %s\n", formatTime(stats.LastSweep))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}
