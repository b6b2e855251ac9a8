package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/2003nayan/automated-github-push/internal/application"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   application.AppName,
	Short: "Automatic GitHub backups for local project folders",
	Long: `Codebackup watches your code folders, detects projects worth preserving,
creates GitHub repositories for them, and keeps them pushed on a schedule.
Each watched folder is tied to a GitHub account, so work and personal
projects stay under the right identity.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
