package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/wikindex/internal/config"
	"github.com/nao1215/wikindex/internal/pipeline"
)

// NewIndexCmd creates the index command.
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index documents stored since the last indexing pass",
		Long: `Index computes TF-IDF weights for every stored document that has not been
indexed yet. Document frequencies combine the new batch with the documents
indexed before, so weights stay comparable across passes.

Examples:
  # Index new documents
  wikindex index

  # Index and write a Markdown report
  wikindex index --markdown -o report.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(cmd, args, false, func(a *app) ([]pipeline.Step, error) {
				return []pipeline.Step{pipeline.NewIndexStep(a.newIndexer())}, nil
			})
		},
	}

	cmd.Flags().IntP(config.FlagWorkers, "w", config.DefaultWorkers,
		"Number of concurrent tokenizers")
	addReportFlags(cmd)
	return cmd
}
