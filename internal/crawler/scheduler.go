package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/wikindex/internal/frontier"
	"github.com/nao1215/wikindex/internal/metrics"
	"github.com/nao1215/wikindex/internal/model"
)

// Default scheduler settings.
const (
	DefaultMaxPages    = 500
	DefaultWorkers     = 20
	DefaultDelay       = 200 * time.Millisecond
	DefaultIdleBackoff = 50 * time.Millisecond

	// progressInterval is how often the progress line is logged.
	progressInterval = time.Second
)

// DocumentStore persists fetched documents.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *model.Document) error
}

// VisitedStore is the durable visited set shared between runs.
type VisitedStore interface {
	frontier.VisitedChecker
	MarkVisited(ctx context.Context, url string) error
}

// Scheduler runs a bounded, concurrent crawl starting from one seed URL.
//
// Design decision: Workers pull URLs from a shared Frontier instead of
// receiving them over a channel. This lets a worker that finds the frontier
// empty distinguish "wait for in-flight pages to produce links" from "no work
// can ever appear", which a channel cannot express without a coordinator.
type Scheduler struct {
	fetcher   Fetcher
	extractor Extractor
	store     DocumentStore
	visited   VisitedStore

	maxPages    int
	workers     int
	delay       time.Duration
	idleBackoff time.Duration
	limiter     *rate.Limiter

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxPages sets the page budget. Values below 1 are ignored.
func WithMaxPages(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithWorkers sets the number of concurrent workers. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithDelay sets the politeness pause each worker takes after a page.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithIdleBackoff sets how long an idle worker waits before polling again.
func WithIdleBackoff(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.idleBackoff = d
		}
	}
}

// WithRateLimit caps fetches per second across all workers. Zero disables
// the limit.
func WithRateLimit(perSecond float64) Option {
	return func(s *Scheduler) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = nil
		}
	}
}

// WithVisitedStore sets the durable visited set used for cross-run dedup.
func WithVisitedStore(v VisitedStore) Option {
	return func(s *Scheduler) {
		s.visited = v
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink. A nil value disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates a Scheduler.
func NewScheduler(fetcher Fetcher, extractor Extractor, store DocumentStore, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:     fetcher,
		extractor:   extractor,
		store:       store,
		maxPages:    DefaultMaxPages,
		workers:     DefaultWorkers,
		delay:       DefaultDelay,
		idleBackoff: DefaultIdleBackoff,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run holds the state of one Run call.
type run struct {
	frontier *frontier.Frontier
	failures model.Failures

	mu        sync.Mutex
	documents map[string]string
	stored    int
}

// Run crawls from seedURL until the page budget is reached, the frontier
// drains, or ctx is canceled.
//
// Run always returns a result. When ctx ends the crawl early, the partial
// result is returned together with ctx's error. Per-page failures are
// logged, counted in the result and never abort the run.
func (s *Scheduler) Run(ctx context.Context, seedURL string) (*model.CrawlResult, error) {
	seed, err := model.NormalizeURL(seedURL)
	if err != nil {
		return nil, err
	}

	fopts := []frontier.Option{frontier.WithLogger(s.logger)}
	if s.visited != nil {
		fopts = append(fopts, frontier.WithVisitedChecker(s.visited))
	}
	r := &run{
		frontier:  frontier.New(fopts...),
		documents: make(map[string]string),
	}
	r.frontier.Enqueue(seed)

	stopOnCancel := context.AfterFunc(ctx, r.frontier.Stop)
	defer stopOnCancel()

	progressDone := make(chan struct{})
	go s.reportProgress(r, progressDone)

	s.logger.Info("crawl started", "seed", seed, "max_pages", s.maxPages, "workers", s.workers)

	var eg errgroup.Group
	for range s.workers {
		eg.Go(func() error {
			s.worker(ctx, r)
			return nil
		})
	}
	_ = eg.Wait()
	close(progressDone)

	result := &model.CrawlResult{
		Visited:   r.frontier.Visited(),
		Documents: r.documents,
		Stored:    r.stored,
		Failures:  r.failures.Snapshot(),
	}

	s.logger.Info("crawl finished",
		"visited", len(result.Visited),
		"stored", result.Stored,
		"failures", len(result.Failures),
	)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// worker pulls URLs until the frontier stops or drains.
func (s *Scheduler) worker(ctx context.Context, r *run) {
	for {
		if r.frontier.Stopped() {
			return
		}

		url, ok := r.frontier.Dequeue()
		if !ok {
			if r.frontier.Drained() {
				r.frontier.Stop()
				return
			}
			if !sleepContext(ctx, s.idleBackoff) {
				return
			}
			continue
		}

		s.process(ctx, r, url)

		if !sleepContext(ctx, s.delay) {
			return
		}
	}
}

// process handles one dequeued URL. Links are enqueued before Release so
// that Drained never reports true while this page can still add work.
func (s *Scheduler) process(ctx context.Context, r *run, url string) {
	defer r.frontier.Release()

	if !r.frontier.Claim(ctx, url) {
		return
	}
	s.metrics.PageClaimed()

	if claimed := r.frontier.Claimed(); claimed >= s.maxPages {
		if !r.frontier.Stopped() {
			s.logger.Info("page budget reached", "max_pages", s.maxPages)
		}
		r.frontier.Stop()
	}

	if s.visited != nil {
		if err := s.visited.MarkVisited(ctx, url); err != nil {
			s.fail(r, model.FailureStore, "mark visited failed", url, err)
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
	}

	start := time.Now()
	raw, err := s.fetcher.Fetch(ctx, url)
	s.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return
		}
		s.fail(r, classify(err), "fetch failed", url, err)
		return
	}

	page := s.extractor.Extract(raw, url)
	doc := &model.Document{
		URL:       url,
		Content:   raw,
		Text:      page.Text,
		Images:    page.Images,
		FetchedAt: time.Now().UTC(),
	}
	doc.ComputeHash()
	doc.TruncateContent()

	if err := s.store.SaveDocument(ctx, doc); err != nil {
		s.fail(r, model.FailureStore, "store document failed", url, err)
	} else {
		s.metrics.DocumentStored()
		r.mu.Lock()
		r.stored++
		r.mu.Unlock()
	}

	r.mu.Lock()
	r.documents[url] = doc.Text
	r.mu.Unlock()

	for _, link := range page.Links {
		r.frontier.Enqueue(link)
	}

	s.logger.Debug("page processed", "url", url, "bytes", len(raw))
}

// fail logs and counts a swallowed per-page failure.
func (s *Scheduler) fail(r *run, category model.FailureCategory, msg, url string, err error) {
	r.failures.Add(category)
	s.metrics.Failure(string(category))
	s.logger.Warn(msg, "url", url, "category", string(category), "error", err)
}

// reportProgress logs the claim count once per interval until done is closed.
func (s *Scheduler) reportProgress(r *run, done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			size := r.frontier.Len()
			s.metrics.SetFrontierSize(size)
			s.logger.Info("crawl progress",
				"claimed", r.frontier.Claimed(),
				"max_pages", s.maxPages,
				"queued", size,
			)
		}
	}
}

// sleepContext waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
