package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/wikindex/internal/config"
	"github.com/nao1215/wikindex/internal/database"
	"github.com/nao1215/wikindex/internal/log"
	"github.com/nao1215/wikindex/internal/model"
	"github.com/nao1215/wikindex/internal/report"
)

// NewHistoryCmd creates the history command.
// This command lists the runs recorded in the corpus database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded crawl and index runs",
		Long: `History lists the runs stored in the corpus database, newest first.

Every crawl, index and run command records its report, including runs that
were interrupted or failed. Use --id to show the full report of one run.

Examples:
  # List the 20 most recent runs
  wikindex history

  # List every run
  wikindex history --limit 0

  # Show one run as JSON
  wikindex history --id 3f1c2a7e-... --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().StringP("id", "i", "",
		"Show the report of the run with this ID")
	addReportFlags(cmd)

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	// Validate report options before opening the database.
	if err := cfg.ValidateReport(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetString("id")
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := log.NewLoggerWithLevel(cmd.ErrOrStderr(), level, cfg.JSONLog)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	if id != "" {
		run, err := db.GetRun(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("no run with id %s", id)
		}
		if err != nil {
			return err
		}
		return outputReport(cmd, cfg, func(w report.Writer) error {
			_, err := w.Write(run)
			return err
		})
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	logger.Debug("loaded run history", "runs", len(runs), "limit", limit)

	if err := outputReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.WriteHistory(runs)
		return err
	}); err != nil {
		return err
	}

	// The corpus summary only accompanies the human-readable listing.
	if reportFormat(cfg) != report.FormatText || cfg.ReportFile != "" {
		return nil
	}
	return writeCorpusSummary(cmd, db, runs)
}

// writeCorpusSummary prints the number of stored documents and the totals
// of the listed runs.
func writeCorpusSummary(cmd *cobra.Command, db *database.CorpusDB, runs []*model.RunReport) error {
	docs, err := db.CountDocuments(cmd.Context())
	if err != nil {
		return err
	}

	var visited, entries int
	for _, r := range runs {
		visited += r.Visited
		entries += r.Entries
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nCorpus: %d documents (listed runs visited %d URLs, wrote %d index entries)\n",
		docs, visited, entries)
	return nil
}
