package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listAccount string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := buildEngine(newLogger(), false)
		if err != nil {
			return err
		}
		defer cleanup()

		records := eng.List(listAccount)
		if len(records) == 0 {
			fmt.Println("No tracked repositories.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tACCOUNT\tSTATUS\tBACKUPS\tLAST BACKUP\tPATH")
		for _, rec := range records {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
				rec.Name, rec.OwnerAccount, rec.Status,
				rec.BackupCount, formatTime(rec.LastBackup), rec.Path)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listAccount, "account", "", "Only show repositories owned by this account")
}
