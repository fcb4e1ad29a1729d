package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/wikindex/internal/metrics"
	"github.com/nao1215/wikindex/internal/model"
)

// Stats provides corpus statistics of the documents indexed so far.
//
// Both methods leave out the documents named in exclude. The indexer passes
// the URLs of the batch it is indexing, so a URL that comes back for
// re-indexing is counted once, by the batch, and not also by its old entries.
type Stats interface {
	// DocumentFrequencies returns, for each word, the number of indexed
	// documents containing it. Missing words have frequency zero.
	DocumentFrequencies(ctx context.Context, words, exclude []string) (map[string]int, error)

	// TotalDocuments returns the number of indexed documents.
	TotalDocuments(ctx context.Context, exclude []string) (int, error)
}

// Store is the corpus store the Indexer reads from and writes to.
type Store interface {
	Stats
	FetchUnprocessed(ctx context.Context) ([]model.UnprocessedDocument, error)
	SaveIndexEntries(ctx context.Context, urls []string, entries []model.IndexEntry) error
	ClearUnprocessed(ctx context.Context, urls []string) error
}

// TextExtractor turns stored page content into plain text.
type TextExtractor func(raw []byte) string

// Indexer runs incremental TF-IDF indexing.
type Indexer struct {
	store       Store
	extract     TextExtractor
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithConcurrency sets how many documents are tokenized in parallel.
func WithConcurrency(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ix *Indexer) {
		ix.metrics = m
	}
}

// New creates an Indexer over store. extract converts stored content to text.
func New(store Store, extract TextExtractor, opts ...Option) *Indexer {
	ix := &Indexer{
		store:       store,
		extract:     extract,
		concurrency: runtime.GOMAXPROCS(0),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Run indexes every unprocessed document in the store.
//
// Processed URLs are removed from the unprocessed set only after their
// entries are saved, so a failed save leaves the batch for the next run.
func (ix *Indexer) Run(ctx context.Context) (*model.IndexResult, error) {
	var failures model.Failures

	pending, err := ix.store.FetchUnprocessed(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch unprocessed documents: %w", err)
	}

	result := &model.IndexResult{Documents: len(pending)}
	if len(pending) == 0 {
		ix.logger.Info("no unprocessed documents")
		result.Failures = failures.Snapshot()
		return result, nil
	}

	docs := make([]model.TextDocument, len(pending))
	urls := make([]string, len(pending))
	for i, p := range pending {
		docs[i] = model.TextDocument{URL: p.URL, Text: ix.extract(p.Content)}
		urls[i] = p.URL
	}

	ix.logger.Info("indexing batch", "documents", len(docs))
	entries := ix.indexBatch(ctx, docs, ix.store, &failures)
	result.Entries = len(entries)

	if err := ix.store.SaveIndexEntries(ctx, urls, entries); err != nil {
		failures.Add(model.FailureIndexSave)
		ix.metrics.Failure(string(model.FailureIndexSave))
		result.Failures = failures.Snapshot()
		return result, fmt.Errorf("save index entries: %w", err)
	}
	ix.metrics.IndexEntries(len(entries))

	if err := ix.store.ClearUnprocessed(ctx, urls); err != nil {
		result.Failures = failures.Snapshot()
		return result, fmt.Errorf("clear unprocessed documents: %w", err)
	}

	result.Failures = failures.Snapshot()
	ix.logger.Info("indexing finished", "documents", result.Documents, "entries", result.Entries)
	return result, nil
}

// IndexBatch computes index entries for docs against the statistics in stats.
//
// Stats failures are logged and treated as an empty corpus. An empty batch
// returns no entries without consulting stats.
func (ix *Indexer) IndexBatch(ctx context.Context, docs []model.TextDocument, stats Stats) []model.IndexEntry {
	var failures model.Failures
	return ix.indexBatch(ctx, docs, stats, &failures)
}

// termCounts holds the term frequencies of one document with words in
// order of first appearance.
type termCounts struct {
	words []string
	tf    map[string]int
}

func (ix *Indexer) indexBatch(ctx context.Context, docs []model.TextDocument, stats Stats, failures *model.Failures) []model.IndexEntry {
	if len(docs) == 0 {
		return []model.IndexEntry{}
	}

	counts := ix.countTerms(ctx, docs)

	batchURLs := make([]string, len(docs))
	for i, doc := range docs {
		batchURLs[i] = doc.URL
	}

	dfBatch := make(map[string]int)
	vocabulary := make([]string, 0)
	for _, c := range counts {
		for _, w := range c.words {
			if dfBatch[w] == 0 {
				vocabulary = append(vocabulary, w)
			}
			dfBatch[w]++
		}
	}

	dfGlobal, err := stats.DocumentFrequencies(ctx, vocabulary, batchURLs)
	if err != nil {
		ix.statsFailed(failures, "document frequencies", err)
		dfGlobal = map[string]int{}
	}
	existing, err := stats.TotalDocuments(ctx, batchURLs)
	if err != nil {
		ix.statsFailed(failures, "total documents", err)
		existing = 0
	}

	totalDocs := float64(existing + len(docs))
	idf := make(map[string]float64, len(vocabulary))
	for _, w := range vocabulary {
		totalDF := dfGlobal[w] + dfBatch[w]
		if totalDF > 0 {
			idf[w] = math.Log(totalDocs / float64(totalDF))
		}
	}

	entries := make([]model.IndexEntry, 0)
	for i, c := range counts {
		docEntries := make([]model.IndexEntry, 0, len(c.words))
		for _, w := range c.words {
			weight := float64(c.tf[w]) * idf[w]
			if weight > 0 {
				docEntries = append(docEntries, model.IndexEntry{Word: w, URL: docs[i].URL, Weight: weight})
			}
		}
		sort.SliceStable(docEntries, func(a, b int) bool {
			return docEntries[a].Weight > docEntries[b].Weight
		})
		entries = append(entries, docEntries...)
	}
	return entries
}

// countTerms tokenizes docs in parallel. Results keep the order of docs.
func (ix *Indexer) countTerms(ctx context.Context, docs []model.TextDocument) []termCounts {
	counts := make([]termCounts, len(docs))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			tokens := NewTokenizer().Tokenize(doc.Text)
			c := termCounts{tf: make(map[string]int)}
			for _, tok := range tokens {
				if c.tf[tok] == 0 {
					c.words = append(c.words, tok)
				}
				c.tf[tok]++
			}
			counts[i] = c
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never fail

	return counts
}

func (ix *Indexer) statsFailed(failures *model.Failures, what string, err error) {
	failures.Add(model.FailureStats)
	ix.metrics.Failure(string(model.FailureStats))
	ix.logger.Warn("corpus statistics unavailable, using empty statistics", "stat", what, "error", err)
}
