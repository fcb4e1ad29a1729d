package report

import (
	"io"

	"github.com/nao1215/wikindex/internal/model"
)

// Writer defines the interface for report output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files or stdout with the same API.
type Writer interface {
	// Write outputs one run report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)

	// WriteHistory outputs a list of past runs, newest first.
	WriteHistory(reports []*model.RunReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteHistory outputs the history to all configured Writers.
func (m *MultiWriter) WriteHistory(reports []*model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHistory(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Format selects a report format.
type Format int

const (
	// FormatText is the human-readable default.
	FormatText Format = iota
	// FormatJSON is indented JSON.
	FormatJSON
	// FormatMarkdown is GitHub-flavored Markdown.
	FormatMarkdown
)

// New returns the Writer for format writing to output.
func New(format Format, output io.Writer) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText returns a one-word run status.
func statusText(report *model.RunReport) string {
	switch {
	case report.TimedOut:
		return "interrupted"
	case report.Error != "":
		return "failed"
	default:
		return "complete"
	}
}

const timeLayout = "2006-01-02 15:04:05 MST"
