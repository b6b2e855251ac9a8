package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2003nayan/automated-github-push/internal/engine"
)

var (
	deleteGitHub bool
	deleteLocal  bool
	deleteYes    bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name|path>",
	Short: "Delete a repository and stop tracking it",
	Long: `Delete a repository. By default only the tracking record is removed;
--delete-github also deletes the GitHub repository and --delete-local
also deletes the local folder. Each step is attempted independently and
failures are reported per step.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]

		if (deleteGitHub || deleteLocal) && !deleteYes {
			fmt.Printf("This will permanently delete")
			if deleteGitHub {
				fmt.Printf(" the GitHub repository")
			}
			if deleteGitHub && deleteLocal {
				fmt.Printf(" and")
			}
			if deleteLocal {
				fmt.Printf(" the local folder")
			}
			fmt.Printf(" for %q.\n", target)
			if !promptConfirm("Continue? [y/N]: ") {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		eng, cleanup, err := buildEngine(newLogger(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := eng.Delete(cmd.Context(), target, engine.DeleteOptions{
			DeleteGitHub: deleteGitHub,
			DeleteLocal:  deleteLocal,
		})

		if deleteGitHub {
			fmt.Printf("GitHub repository deleted: %v\n", result.GitHubDeleted)
		}
		if deleteLocal {
			fmt.Printf("Local folder deleted:      %v\n", result.LocalDeleted)
		}
		fmt.Printf("Tracking removed:          %v\n", result.TrackingRemoved)

		return err
	},
}

func promptConfirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVar(&deleteGitHub, "delete-github", false, "Also delete the GitHub repository")
	deleteCmd.Flags().BoolVar(&deleteLocal, "delete-local", false, "Also delete the local folder")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Skip confirmation prompt")
}
