package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <name|path>",
	Short: "Re-include a repository in automatic backups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := buildEngine(newLogger(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := eng.Enable(args[0]); err != nil {
			return err
		}
		fmt.Printf("Automatic backups enabled for %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
}
