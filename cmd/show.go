package cmd

import (
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-timeline/internal/report"
	"github.com/naka-gawa/github-timeline/internal/storage"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the persisted timeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := storage.NewHistoryStore(cfg.HistoryFile).Load()
		if err != nil {
			return err
		}
		return report.PrintHistory(cmd.OutOrStdout(), history)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
