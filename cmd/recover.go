package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhh-linglab/linkage-cli/internal/assemble"
	"github.com/nhh-linglab/linkage-cli/internal/ingest"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Decode the legacy archival export standalone",
	Long:  "Parses the legacy export's literal-dialect message trees and writes the recovered messages as a flat CSV, without running the linkage.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		legacyPath, _ := cmd.Flags().GetString("legacy")
		outputPath, _ := cmd.Flags().GetString("output")

		records, skips, err := ingest.ReadLegacyCSV(legacyPath, ingest.LegacyOptions{
			Encoding: cfg.Ingest.Encoding,
		})
		if err != nil {
			return err
		}

		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrap(err, "recover: create output")
		}
		defer f.Close() //nolint:errcheck
		if err := assemble.WriteRecoveredMessagesCSV(f, records); err != nil {
			return err
		}

		zap.L().Info("recovered messages written",
			zap.String("path", outputPath),
			zap.Int("conversations", len(records)),
			zap.Int("dropped", len(skips)))

		fmt.Fprintf(cmd.OutOrStdout(), "Recovered %d conversations (%d dropped)\n", len(records), len(skips))
		for _, s := range skips {
			fmt.Fprintf(cmd.OutOrStdout(), "  dropped %s: %s\n", s.Key, s.Reason)
		}
		return nil
	},
}

func init() {
	recoverCmd.Flags().String("legacy", "", "legacy archival export (.csv)")
	recoverCmd.Flags().String("output", "recovered_messages.csv", "recovered messages destination")
	_ = recoverCmd.MarkFlagRequired("legacy")

	rootCmd.AddCommand(recoverCmd)
}
