package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/wikindex/internal/model"
)

// SaveRun stores a run report. Saving a report with the same ID replaces it.
func (cdb *CorpusDB) SaveRun(ctx context.Context, report *model.RunReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize run report: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO crawl_runs (id, seed_url, started_at, report_json)
	VALUES (?, ?, ?, ?)
	`
	if _, err := cdb.db.ExecContext(ctx, query,
		report.ID, report.SeedURL, report.StartedAt.UTC().Format(time.RFC3339Nano), string(reportJSON),
	); err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	return nil
}

// GetRun returns the run report with the given ID, or ErrNotFound.
func (cdb *CorpusDB) GetRun(ctx context.Context, id string) (*model.RunReport, error) {
	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, "SELECT report_json FROM crawl_runs WHERE id = ?", id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.RunReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse run report: %w", err)
	}
	return &report, nil
}

// ListRuns returns run reports, newest first. A limit of zero or less
// returns every run.
func (cdb *CorpusDB) ListRuns(ctx context.Context, limit int) ([]*model.RunReport, error) {
	query := "SELECT report_json FROM crawl_runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var reports []*model.RunReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run report: %w", err)
		}

		var report model.RunReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			// Skip malformed reports
			continue
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}
