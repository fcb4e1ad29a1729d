package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/wikindex/internal/pipeline"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [seed-url]",
		Short: "Crawl, then index the new documents",
		Long: `Run performs a crawl followed by an indexing pass and prints one report
covering both. It accepts every crawl flag.

The index step runs even if the crawl ended with an error, so pages stored
before the failure are still indexed.

Examples:
  # Crawl and index from the default seed
  wikindex run

  # Crawl 1000 pages and write a JSON report
  wikindex run -p 1000 --json -o run.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(cmd, args, true, func(a *app) ([]pipeline.Step, error) {
				step, err := a.crawlStep()
				if err != nil {
					return nil, err
				}
				return []pipeline.Step{step, pipeline.NewIndexStep(a.newIndexer())}, nil
			})
		},
	}

	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}
