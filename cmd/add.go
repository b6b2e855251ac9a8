package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addAccount string

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Track a folder explicitly",
	Long: `Track a folder without waiting for detection to notice it. The folder
must live under one of the watched paths so it can be routed to an
account. The project-validity heuristics are bypassed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := buildEngine(newLogger(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := eng.Add(cmd.Context(), args[0], addAccount); err != nil {
			return err
		}
		fmt.Printf("Tracking %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addAccount, "account", "", "Override the owning account")
}
