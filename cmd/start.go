package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the backup daemon in the foreground",
	Long: `Start watches the configured folders for new projects, creates GitHub
repositories for them, and backs everything up on the configured interval.
It runs until interrupted; SIGINT or SIGTERM triggers a graceful shutdown
that finishes in-flight work and saves state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		eng, cleanup, err := buildEngine(logger, true)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return eng.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
