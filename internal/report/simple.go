package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/wikindex/internal/model"
)

// SimpleWriter outputs human-readable text reports.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("WIKINDEX RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	fmt.Fprintf(&sb, "Run ID:      %s\n", report.ID)
	if report.SeedURL != "" {
		fmt.Fprintf(&sb, "Seed:        %s\n", report.SeedURL)
		fmt.Fprintf(&sb, "Max pages:   %d\n", report.MaxPages)
	}
	fmt.Fprintf(&sb, "Started:     %s\n", report.StartedAt.Format(timeLayout))
	if d := report.Duration(); d > 0 {
		fmt.Fprintf(&sb, "Duration:    %s\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "Status:      %s\n", statusText(report))
	if len(report.PerformedSteps) > 0 {
		fmt.Fprintf(&sb, "Steps:       %s\n", strings.Join(report.PerformedSteps, ", "))
	}
	if report.Error != "" {
		fmt.Fprintf(&sb, "Error:       %s\n", report.Error)
	}

	sb.WriteString("\nTOTALS\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&sb, "  Visited:        %d\n", report.Visited)
	fmt.Fprintf(&sb, "  Stored:         %d\n", report.Stored)
	fmt.Fprintf(&sb, "  Indexed:        %d\n", report.Indexed)
	fmt.Fprintf(&sb, "  Index entries:  %d\n", report.Entries)

	sb.WriteString("\nFAILURES\n")
	sb.WriteString(strings.Repeat("-", 40) + "\n")
	cats := report.FailureCategories()
	if len(cats) == 0 {
		sb.WriteString("  none\n")
	}
	for _, c := range cats {
		fmt.Fprintf(&sb, "  %-14s  %d\n", string(c)+":", report.Failures[c])
	}

	return io.WriteString(w.output, sb.String())
}

// WriteHistory outputs one line per run.
func (w *SimpleWriter) WriteHistory(reports []*model.RunReport) (int, error) {
	var sb strings.Builder

	if len(reports) == 0 {
		sb.WriteString("No runs recorded.\n")
		return io.WriteString(w.output, sb.String())
	}

	fmt.Fprintf(&sb, "%-36s  %-23s  %7s  %7s  %7s  %8s  %s\n",
		"ID", "STARTED", "VISITED", "STORED", "ENTRIES", "FAILURES", "SEED")
	for _, r := range reports {
		fmt.Fprintf(&sb, "%-36s  %-23s  %7d  %7d  %7d  %8d  %s\n",
			r.ID, r.StartedAt.Format(timeLayout), r.Visited, r.Stored, r.Entries, r.TotalFailures(), r.SeedURL)
	}
	return io.WriteString(w.output, sb.String())
}
