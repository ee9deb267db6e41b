package main

import (
	"github.com/spf13/cobra"

	"github.com/nhh-linglab/linkage-cli/internal/assemble"
)

var statsCmd = &cobra.Command{
	Use:   "stats <unified.csv>",
	Short: "Summarize a previously written unified dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := assemble.SummarizeCSV(args[0])
		if err != nil {
			return err
		}
		printStats(cmd, s)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
