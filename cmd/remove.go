package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:     "remove <name|path>",
	Aliases: []string{"rm"},
	Short:   "Stop tracking a repository",
	Long: `Stop tracking a repository. The local folder and the GitHub repository
are left untouched; use delete to destroy them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := buildEngine(newLogger(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := eng.Remove(args[0]); err != nil {
			return err
		}
		fmt.Printf("No longer tracking %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
