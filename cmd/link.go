package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nhh-linglab/linkage-cli/internal/assemble"
	"github.com/nhh-linglab/linkage-cli/internal/extract"
	"github.com/nhh-linglab/linkage-cli/internal/ingest"
	"github.com/nhh-linglab/linkage-cli/internal/model"
	"github.com/nhh-linglab/linkage-cli/internal/pipeline"
	"github.com/nhh-linglab/linkage-cli/internal/store"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Run the full linkage over survey and conversation exports",
	Long:  "Reads the survey table, the primary conversation export, and optionally the legacy archival export; links each survey response to at most one conversation; writes the unified dataset.",
	RunE:  runLink,
}

func init() {
	linkCmd.Flags().String("survey", "", "survey export (.csv or .xlsx)")
	linkCmd.Flags().String("conversations", "", "primary conversation export (.csv)")
	linkCmd.Flags().String("legacy", "", "legacy archival export (.csv, optional)")
	linkCmd.Flags().String("output", "unified_dataset.csv", "unified dataset destination")
	linkCmd.Flags().String("unmatched-report", "", "optional CSV listing conversations left unmatched")
	linkCmd.Flags().Int("tolerance-hours", 0, "override link.tolerance_hours")
	linkCmd.Flags().Bool("no-store", false, "skip the run/audit database")
	_ = linkCmd.MarkFlagRequired("survey")
	_ = linkCmd.MarkFlagRequired("conversations")

	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := zap.L()

	surveyPath, _ := cmd.Flags().GetString("survey")
	convPath, _ := cmd.Flags().GetString("conversations")
	legacyPath, _ := cmd.Flags().GetString("legacy")
	outputPath, _ := cmd.Flags().GetString("output")
	reportPath, _ := cmd.Flags().GetString("unmatched-report")
	toleranceHours, _ := cmd.Flags().GetInt("tolerance-hours")
	noStore, _ := cmd.Flags().GetBool("no-store")

	extractor, err := buildExtractor()
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Window:          cfg.Link.Window(),
		RecoveredWindow: cfg.Link.RecoveredWindow(),
	}
	if toleranceHours > 0 {
		opts.Window = time.Duration(toleranceHours) * time.Hour
	}

	in, err := loadInputs(ctx, surveyPath, convPath, legacyPath)
	if err != nil {
		return err
	}

	var st store.Store
	if !noStore {
		sqlStore, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer sqlStore.Close() //nolint:errcheck
		st = sqlStore
	}

	p := pipeline.New(opts, extractor, st)
	result, err := p.Run(ctx, *in)
	if err != nil {
		return err
	}

	if err := assemble.WriteUnifiedCSVFile(outputPath, in.Surveys.Columns, result.Records); err != nil {
		return err
	}
	log.Info("unified dataset written",
		zap.String("path", outputPath),
		zap.Int("rows", len(result.Records)))

	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			return eris.Wrap(err, "link: create unmatched report")
		}
		defer f.Close() //nolint:errcheck
		if err := assemble.WriteUnmatchedReport(f, result.Unmatched); err != nil {
			return err
		}
		log.Info("unmatched report written",
			zap.String("path", reportPath),
			zap.Int("conversations", len(result.Unmatched)))
	}

	printStats(cmd, result.Stats)
	return nil
}

// loadInputs reads the three exports in parallel; everything after this is a
// synchronous in-memory transformation.
func loadInputs(ctx context.Context, surveyPath, convPath, legacyPath string) (*pipeline.Inputs, error) {
	in := &pipeline.Inputs{}
	var surveySkips, convSkips, legacySkips []ingest.Skip

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Surveys, surveySkips, err = readSurvey(surveyPath)
		return err
	})
	g.Go(func() error {
		var err error
		in.Primary, convSkips, err = ingest.ReadConversationsCSV(convPath, ingest.ConversationOptions{
			Encoding: cfg.Ingest.Encoding,
		})
		return err
	})
	if legacyPath != "" {
		g.Go(func() error {
			var err error
			in.Recovered, legacySkips, err = ingest.ReadLegacyCSV(legacyPath, ingest.LegacyOptions{
				Encoding: cfg.Ingest.Encoding,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in.Skips = append(in.Skips, pipeline.AuditFromSkips("ingest_survey", surveySkips)...)
	in.Skips = append(in.Skips, pipeline.AuditFromSkips("ingest_conversations", convSkips)...)
	in.Skips = append(in.Skips, pipeline.AuditFromSkips("legacy_decode", legacySkips)...)

	if len(in.Surveys.Rows) == 0 {
		return nil, eris.New("link: survey table has no usable rows")
	}
	return in, nil
}

func readSurvey(path string) (*model.SurveyTable, []ingest.Skip, error) {
	opts := ingest.SurveyOptions{
		Encoding:      cfg.Ingest.Encoding,
		ResponseIDCol: cfg.Ingest.ResponseIDColumn,
		StartTimeCol:  cfg.Ingest.StartTimeColumn,
		DeclaredIDCol: cfg.Ingest.DeclaredIDColumn,
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ingest.ReadSurveyXLSX(path, opts)
	}
	return ingest.ReadSurveyCSV(path, opts)
}

func buildExtractor() (*extract.Extractor, error) {
	if cfg.Extract.LayoutsFile == "" {
		return extract.DefaultExtractor, nil
	}
	extra, err := extract.LoadLayouts(cfg.Extract.LayoutsFile)
	if err != nil {
		return nil, err
	}
	return extract.NewExtractor(extra...), nil
}

func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func printStats(cmd *cobra.Command, s assemble.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Rows:      %d\n", s.Rows)
	fmt.Fprintf(out, "Matched:   %d (%.1f%%)\n", s.Matched, s.MatchRate()*100)
	for _, m := range []model.MatchMethod{model.MatchExplicitID, model.MatchRecoveredData, model.MatchTimestamp} {
		if n := s.ByMethod[m]; n > 0 {
			fmt.Fprintf(out, "  %-14s %d\n", string(m)+":", n)
		}
	}
	for _, st := range []model.DataStatus{model.StatusComplete, model.StatusRecovered, model.StatusDuplicate, model.StatusMissingConversation} {
		if n := s.ByStatus[st]; n > 0 {
			fmt.Fprintf(out, "  %-20s %d\n", string(st)+":", n)
		}
	}
	if s.Matched > 0 && s.MaxDiffMinutes > 0 {
		fmt.Fprintf(out, "Time diff: mean %.1f min, max %.1f min\n", s.MeanDiffMinutes, s.MaxDiffMinutes)
	}
}
