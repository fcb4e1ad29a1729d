package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/wikindex/internal/pipeline"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url]",
		Short: "Crawl article pages into the corpus",
		Long: `Crawl fetches article pages breadth-first from a seed URL with a pool of
concurrent workers and stores them in the corpus database.

Only links to articles on the seed's host are followed. URLs visited by
earlier runs are skipped, and a seed that was already visited is refused.
The crawl stops once --max-pages URLs were claimed or no work is left.

Examples:
  # Crawl from the default seed
  wikindex crawl

  # Crawl 100 pages with 5 workers
  wikindex crawl -p 100 -w 5 https://en.wikipedia.org/wiki/Go_(programming_language)

  # Share the visited set with other crawler processes
  wikindex crawl --redis redis://localhost:6379/0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSteps(cmd, args, true, func(a *app) ([]pipeline.Step, error) {
				step, err := a.crawlStep()
				if err != nil {
					return nil, err
				}
				return []pipeline.Step{step}, nil
			})
		},
	}

	addCrawlFlags(cmd)
	addReportFlags(cmd)
	return cmd
}
