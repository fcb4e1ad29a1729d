// Package report renders run reports for the terminal, for tools (JSON)
// and for documentation (Markdown).
//
// Each format implements Writer, which renders a single RunReport and the
// run history listed by the history command.
package report
