package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var disableReason string

var disableCmd = &cobra.Command{
	Use:   "disable <name|path>",
	Short: "Exclude a repository from automatic backups",
	Long: `Exclude a repository from the sweep and from watcher-triggered backups.
The repository stays tracked and can still be backed up manually.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := buildEngine(newLogger(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := eng.Disable(args[0], disableReason); err != nil {
			return err
		}
		fmt.Printf("Automatic backups disabled for %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(disableCmd)
	disableCmd.Flags().StringVar(&disableReason, "reason", "", "Optional note on why backups are disabled")
}
