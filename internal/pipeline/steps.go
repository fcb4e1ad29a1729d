package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/wikindex/internal/frontier"
	"github.com/nao1215/wikindex/internal/model"
)

// ErrSeedVisited is returned when the seed URL was already visited in a
// previous run, so the crawl could not discover anything new.
var ErrSeedVisited = errors.New("seed url has already been visited")

// Crawler runs one crawl from a seed URL.
type Crawler interface {
	Run(ctx context.Context, seedURL string) (*model.CrawlResult, error)
}

// Indexer runs one indexing pass over unprocessed documents.
type Indexer interface {
	Run(ctx context.Context) (*model.IndexResult, error)
}

// CrawlStep crawls from the report's seed URL.
type CrawlStep struct {
	crawler Crawler

	// seedCheck rejects seeds visited in earlier runs. May be nil.
	seedCheck frontier.VisitedChecker

	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithSeedCheck makes the step refuse a seed that checker reports visited.
func WithSeedCheck(checker frontier.VisitedChecker) CrawlStepOption {
	return func(s *CrawlStep) {
		s.seedCheck = checker
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(crawler Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler: crawler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl. A partial result from a cancelled crawl is still
// folded into the report.
func (s *CrawlStep) Do(ctx context.Context, report *model.RunReport) error {
	if s.seedCheck != nil {
		visited, err := s.seedCheck.IsVisited(ctx, report.SeedURL)
		if err != nil {
			s.logger.Warn("could not check seed url", "seed", report.SeedURL, "error", err)
		} else if visited {
			return fmt.Errorf("%w: %s", ErrSeedVisited, report.SeedURL)
		}
	}

	result, err := s.crawler.Run(ctx, report.SeedURL)
	report.ApplyCrawl(result)
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	return nil
}

// IndexStep indexes every unprocessed document.
type IndexStep struct {
	indexer Indexer
}

// NewIndexStep creates an index step.
func NewIndexStep(indexer Indexer) *IndexStep {
	return &IndexStep{indexer: indexer}
}

// Name returns the step name.
func (s *IndexStep) Name() string {
	return "index"
}

// Do executes the indexing pass.
func (s *IndexStep) Do(ctx context.Context, report *model.RunReport) error {
	result, err := s.indexer.Run(ctx)
	report.ApplyIndex(result)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}
