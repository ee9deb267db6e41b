package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nhh-linglab/linkage-cli/internal/model"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect linkage run history",
	Long:  "Commands for listing past linkage runs and reviewing their audit events.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List linkage runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's summary and audit events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "runs show %s", args[0])
		}
		events, err := st.ListEvents(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "runs show %s", args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:      %s\n", run.ID)
		fmt.Fprintf(out, "Status:   %s\n", run.Status)
		fmt.Fprintf(out, "Started:  %s\n", run.CreatedAt.Format(time.RFC3339))
		if !run.FinishedAt.IsZero() {
			fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
		}
		if s := run.Summary; s != nil {
			fmt.Fprintf(out, "Surveys:  %d (%d skipped)\n", s.SurveyRows, s.SkippedRows)
			fmt.Fprintf(out, "Convs:    %d primary, %d recovered\n", s.Conversations, s.RecoveredConversations)
			fmt.Fprintf(out, "Matched:  %d\n", s.Matched)
			for method, n := range s.ByMethod {
				fmt.Fprintf(out, "  %s: %d\n", method, n)
			}
		}

		if len(events) > 0 {
			fmt.Fprintf(out, "\nAudit events (%d):\n", len(events))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STAGE\tKEY\tREASON")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Stage, e.Key, e.Reason)
			}
			tw.Flush() //nolint:errcheck
		}
		return nil
	},
}

func formatRunsList(w io.Writer, runs []model.LinkRun) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tMATCHED\tROWS")
	for _, r := range runs {
		matched, rows := "-", "-"
		if r.Summary != nil {
			matched = fmt.Sprintf("%d", r.Summary.Matched)
			rows = fmt.Sprintf("%d", r.Summary.SurveyRows)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, r.CreatedAt.Format("2006-01-02 15:04"), matched, rows)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
