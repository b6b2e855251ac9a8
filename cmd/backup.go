package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupAll bool

var backupCmd = &cobra.Command{
	Use:   "backup [name|path]",
	Short: "Back up a tracked repository now",
	Long: `Commit and push a tracked repository immediately, outside the sweep
schedule. A repository with nothing to commit is left alone. With --all
every tracked repository is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !backupAll {
			return fmt.Errorf("specify a repository or pass --all")
		}

		eng, cleanup, err := buildEngine(newLogger(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		if backupAll {
			return eng.ForceBackup(cmd.Context(), "")
		}
		return eng.Backup(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().BoolVar(&backupAll, "all", false, "Back up every tracked repository")
}
