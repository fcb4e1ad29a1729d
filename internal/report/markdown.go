package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/wikindex/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("wikindex Run Report")
	md.PlainText("")

	rows := [][]string{
		{"Run ID", "`" + report.ID + "`"},
		{"Started", report.StartedAt.Format(timeLayout)},
		{"Status", statusText(report)},
	}
	if report.SeedURL != "" {
		rows = append(rows,
			[]string{"Seed", report.SeedURL},
			[]string{"Max pages", strconv.Itoa(report.MaxPages)},
		)
	}
	if d := report.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", d.Round(time.Millisecond).String()})
	}
	md.Table(markdown.TableSet{Header: []string{"Property", "Value"}, Rows: rows})
	md.PlainText("")

	md.H2("Totals")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Visited", strconv.Itoa(report.Visited)},
			{"Stored", strconv.Itoa(report.Stored)},
			{"Indexed", strconv.Itoa(report.Indexed)},
			{"Index entries", strconv.Itoa(report.Entries)},
		},
	})
	md.PlainText("")

	w.writeFailures(md, report)

	if report.Error != "" {
		md.Cautionf("Run failed: %s", report.Error)
		md.PlainText("")
	} else if report.TimedOut {
		md.Warningf("Run was interrupted; counters reflect partial results.")
		md.PlainText("")
	}

	writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFailures writes the failure table and a pie chart of categories.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Failures")
	md.PlainText("")

	cats := report.FailureCategories()
	if len(cats) == 0 {
		md.Tip("No failures recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(cats))
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Failures by category"),
		piechart.WithShowData(true),
	)
	for i, c := range cats {
		n := report.Failures[c]
		rows[i] = []string{string(c), strconv.Itoa(n)}
		chart.LabelAndIntValue(string(c), uint64(n)) //nolint:gosec // counts are non-negative
	}
	md.Table(markdown.TableSet{Header: []string{"Category", "Count"}, Rows: rows})
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// WriteHistory outputs the runs as a Markdown table.
func (w *MarkdownWriter) WriteHistory(reports []*model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("wikindex Run History")
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("No runs recorded.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			"`" + r.ID + "`",
			r.StartedAt.Format(timeLayout),
			r.SeedURL,
			strconv.Itoa(r.Visited),
			strconv.Itoa(r.Stored),
			strconv.Itoa(r.Entries),
			strconv.Itoa(r.TotalFailures()),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Seed", "Visited", "Stored", "Entries", "Failures"},
		Rows:   rows,
	})
	md.PlainText("")

	writeFooter(md)
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by wikindex*")
}
