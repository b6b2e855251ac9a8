package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/2003nayan/automated-github-push/internal/notify"
	"github.com/spf13/cobra"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Manage notification channels",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long: `Send a test event through every configured notification channel.

Examples:
  codebackup notify test`,
	RunE: runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(_ *cobra.Command, _ []string) error {
	logger := newLogger()

	dispatcher := notify.NewDispatcher(false, logger)
	dispatcher.Register(notify.NewLogSender(logger))

	_, _ = fmt.Fprintln(os.Stdout, "Sending test notification...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := dispatcher.Test(ctx); err != nil {
		return fmt.Errorf("notification test failed: %w", err)
	}

	_, _ = fmt.Fprintln(os.Stdout, "All notification channels responded.")
	return nil
}
