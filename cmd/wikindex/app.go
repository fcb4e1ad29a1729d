package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/wikindex/internal/config"
	"github.com/nao1215/wikindex/internal/crawler"
	"github.com/nao1215/wikindex/internal/database"
	"github.com/nao1215/wikindex/internal/indexer"
	"github.com/nao1215/wikindex/internal/log"
	"github.com/nao1215/wikindex/internal/metrics"
	"github.com/nao1215/wikindex/internal/model"
	"github.com/nao1215/wikindex/internal/pipeline"
	"github.com/nao1215/wikindex/internal/report"
)

// addCrawlFlags registers the flags that tune a crawl.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.FlagSeed, "",
		"Seed article URL (default: "+config.DefaultSeedURL+")")
	cmd.Flags().IntP(config.FlagMaxPages, "p", config.DefaultMaxPages,
		"Maximum number of URLs claimed in one crawl")
	cmd.Flags().IntP(config.FlagWorkers, "w", config.DefaultWorkers,
		"Number of concurrent workers")
	cmd.Flags().Duration(config.FlagCrawlDelay, config.DefaultCrawlDelay,
		"Pause each worker takes after a page")
	cmd.Flags().DurationP(config.FlagTimeout, "t", config.DefaultTimeout,
		"Timeout of each HTTP request")
	cmd.Flags().String(config.FlagUserAgent, config.DefaultUserAgent,
		"User-Agent header sent with each request")
	cmd.Flags().Int64(config.FlagMaxBodySize, config.DefaultMaxBodySize,
		"Largest response body read per page, in bytes")
	cmd.Flags().Float64(config.FlagRateLimit, 0,
		"Requests per second across all workers (0 disables the limit)")
	cmd.Flags().String(config.FlagRedis, "",
		"Redis address or URL of a visited set shared between processes")
	cmd.Flags().Duration(config.FlagRedisTTL, 0,
		"Expire visited marks in Redis after this long (0 keeps them)")
	cmd.Flags().String(config.FlagMetricsAddr, "",
		"Serve Prometheus metrics on this address (e.g. :9090)")
}

// addReportFlags registers the report format and destination flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// flagLookup reads flags that a command may or may not define.
type flagLookup struct {
	cmd *cobra.Command
	err error
}

func (l *flagLookup) has(name string) bool {
	return l.cmd.Flags().Lookup(name) != nil
}

func (l *flagLookup) str(name string, dst *string) {
	if l.err != nil || !l.has(name) {
		return
	}
	*dst, l.err = l.cmd.Flags().GetString(name)
}

func (l *flagLookup) boolean(name string, dst *bool) {
	if l.err != nil || !l.has(name) {
		return
	}
	*dst, l.err = l.cmd.Flags().GetBool(name)
}

func (l *flagLookup) integer(name string, dst *int) {
	if l.err != nil || !l.has(name) {
		return
	}
	*dst, l.err = l.cmd.Flags().GetInt(name)
}

// buildConfig creates a Config from defaults, the configuration file and
// cobra command flags, in increasing order of precedence.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	l := &flagLookup{cmd: cmd}

	l.str("config", &cfg.ConfigFilePath)
	l.boolean("verbose", &cfg.Verbose)
	l.boolean("log-json", &cfg.JSONLog)
	if l.err != nil {
		return nil, l.err
	}

	// If the user named a config file, it must exist. Otherwise a missing
	// file just means defaults.
	if path := config.FindConfigFile(cfg.ConfigFilePath); path != "" {
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := file.Apply(cfg, flags.Changed); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed(config.FlagSeed) {
		l.str(config.FlagSeed, &cfg.SeedURL)
	}
	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}

	if flags.Changed(config.FlagMaxPages) {
		l.integer(config.FlagMaxPages, &cfg.MaxPages)
	}
	if flags.Changed(config.FlagWorkers) {
		l.integer(config.FlagWorkers, &cfg.Workers)
	}
	if flags.Changed(config.FlagUserAgent) {
		l.str(config.FlagUserAgent, &cfg.UserAgent)
	}
	if flags.Changed(config.FlagDBDir) {
		l.str(config.FlagDBDir, &cfg.DBDir)
	}
	if flags.Changed(config.FlagRedis) {
		l.str(config.FlagRedis, &cfg.RedisAddr)
	}
	if flags.Changed(config.FlagMetricsAddr) {
		l.str(config.FlagMetricsAddr, &cfg.MetricsAddr)
	}
	l.boolean("json", &cfg.JSONReport)
	l.boolean("markdown", &cfg.MarkdownReport)
	l.str("output", &cfg.ReportFile)
	if l.err != nil {
		return nil, l.err
	}

	var err error
	if flags.Changed(config.FlagCrawlDelay) {
		if cfg.CrawlDelay, err = flags.GetDuration(config.FlagCrawlDelay); err != nil {
			return nil, err
		}
	}
	if flags.Changed(config.FlagTimeout) {
		if cfg.Timeout, err = flags.GetDuration(config.FlagTimeout); err != nil {
			return nil, err
		}
	}
	if flags.Changed(config.FlagRedisTTL) {
		if cfg.RedisTTL, err = flags.GetDuration(config.FlagRedisTTL); err != nil {
			return nil, err
		}
	}
	if flags.Changed(config.FlagMaxBodySize) {
		if cfg.MaxBodySize, err = flags.GetInt64(config.FlagMaxBodySize); err != nil {
			return nil, err
		}
	}
	if flags.Changed(config.FlagRateLimit) {
		if cfg.RateLimit, err = flags.GetFloat64(config.FlagRateLimit); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// app holds the resources shared by the crawl, index and run commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.CorpusDB
	visited crawler.VisitedStore
	redis   *database.RedisVisited
	metrics *metrics.Metrics
}

// openApp opens the corpus database and, if configured, the shared Redis
// visited set.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		visited: db,
		metrics: metrics.New(),
	}

	if cfg.RedisAddr != "" {
		client, err := database.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		a.redis = database.NewRedisVisited(client, database.WithVisitedTTL(cfg.RedisTTL))
		a.visited = database.NewMultiVisited(db, a.redis)
		logger.Info("using shared visited set", "redis", cfg.RedisAddr, "ttl", cfg.RedisTTL)
	}
	return a, nil
}

// Close releases the database and Redis connections.
func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}

// newScheduler builds a crawl scheduler restricted to the seed's host.
func (a *app) newScheduler() (*crawler.Scheduler, error) {
	u, err := url.Parse(a.cfg.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidSeed, a.cfg.SeedURL)
	}

	fetcher := crawler.NewHTTPFetcher(
		crawler.WithUserAgent(a.cfg.UserAgent),
		crawler.WithTimeout(a.cfg.Timeout),
		crawler.WithMaxBodySize(a.cfg.MaxBodySize),
	)
	extractor := crawler.NewHTMLExtractor(crawler.NewLinkFilter(u.Hostname()))

	return crawler.NewScheduler(fetcher, extractor, a.db,
		crawler.WithMaxPages(a.cfg.MaxPages),
		crawler.WithWorkers(a.cfg.Workers),
		crawler.WithDelay(a.cfg.CrawlDelay),
		crawler.WithRateLimit(a.cfg.RateLimit),
		crawler.WithVisitedStore(a.visited),
		crawler.WithLogger(a.logger),
		crawler.WithMetrics(a.metrics),
	), nil
}

// newIndexer builds an indexer over the corpus database.
func (a *app) newIndexer() *indexer.Indexer {
	return indexer.New(a.db, crawler.ExtractText,
		indexer.WithConcurrency(a.cfg.Workers),
		indexer.WithLogger(a.logger),
		indexer.WithMetrics(a.metrics),
	)
}

// crawlStep wraps the scheduler in a pipeline step that refuses an
// already visited seed.
func (a *app) crawlStep() (pipeline.Step, error) {
	s, err := a.newScheduler()
	if err != nil {
		return nil, err
	}
	return pipeline.NewCrawlStep(s,
		pipeline.WithSeedCheck(a.visited),
		pipeline.WithCrawlLogger(a.logger),
	), nil
}

// stepsFunc returns the pipeline steps a command runs.
type stepsFunc func(a *app) ([]pipeline.Step, error)

// runSteps is the common body of crawl, index and run: it prepares the
// resources, executes the steps, records the run and writes the report.
func runSteps(cmd *cobra.Command, args []string, crawls bool, steps stepsFunc) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if crawls {
		seed, err := model.NormalizeURL(cfg.SeedURL)
		if err != nil {
			return fmt.Errorf("%w: %s", config.ErrInvalidSeed, cfg.SeedURL)
		}
		cfg.SeedURL = seed
	}

	logger := log.NewLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close resources", "error", err)
		}
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	list, err := steps(a)
	if err != nil {
		return err
	}

	var run *model.RunReport
	if crawls {
		run = model.NewRunReport(cfg.SeedURL, cfg.MaxPages)
	} else {
		run = model.NewRunReport("", 0)
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(list...)
	execErr := p.Execute(ctx, run)

	// The run is recorded even when interrupted.
	if err := a.db.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("failed to save run", "run", run.ID, "error", err)
	}

	if err := outputReport(cmd, cfg, func(w report.Writer) error {
		_, err := w.Write(run)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return execErr
}

// reportFormat returns the report format selected by cfg.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// outputReport opens the report destination and hands a writer of the
// selected format to write.
func outputReport(cmd *cobra.Command, cfg *config.Config, write func(report.Writer) error) error {
	var output io.Writer = cmd.OutOrStdout()
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}
	return write(report.New(reportFormat(cfg), output))
}
