package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for wikindex.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wikindex",
		Short: "Concurrent encyclopedia crawler with an incremental TF-IDF index",
		Long: `wikindex crawls article pages breadth-first from a seed URL, stores them in
a local SQLite corpus and indexes them with TF-IDF weights.

Visited URLs are remembered between runs, so a later run only fetches pages
it has not seen before, and indexing only processes newly stored pages.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .wikindex in current or home directory)")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the corpus database (default: XDG data directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
