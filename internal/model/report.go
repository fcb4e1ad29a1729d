package model

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FailureCategory classifies a failure that was logged and swallowed.
type FailureCategory string

// Failure categories counted in the run report.
const (
	// FailureFetch is a network-level failure (timeout, connection refused).
	FailureFetch FailureCategory = "fetch"

	// FailureStatus is a non-2xx HTTP response.
	FailureStatus FailureCategory = "status"

	// FailureParse is a body that could not be read or parsed.
	FailureParse FailureCategory = "parse"

	// FailureStore is a failed write to the corpus store during crawling.
	FailureStore FailureCategory = "store"

	// FailureStats is a failed read of global statistics during indexing.
	// Indexing continues with empty statistics.
	FailureStats FailureCategory = "stats"

	// FailureIndexSave is a failed write of index entries.
	FailureIndexSave FailureCategory = "index_save"
)

// Failures counts failures per category. It is safe for concurrent use.
type Failures struct {
	mu     sync.Mutex
	counts map[FailureCategory]int
}

// Add increments the counter for the given category.
func (f *Failures) Add(category FailureCategory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[FailureCategory]int)
	}
	f.counts[category]++
}

// Count returns the counter for the given category.
func (f *Failures) Count(category FailureCategory) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[category]
}

// Snapshot returns a copy of all non-zero counters.
func (f *Failures) Snapshot() map[FailureCategory]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[FailureCategory]int, len(f.counts))
	for k, v := range f.counts {
		out[k] = v
	}
	return out
}

// CrawlResult is the outcome of one crawl run.
type CrawlResult struct {
	// Visited contains every URL claimed during the run, including
	// URLs whose fetch failed.
	Visited []string

	// Documents maps each successfully fetched URL to its extracted text.
	Documents map[string]string

	// Stored is the number of documents written to the corpus store.
	Stored int

	// Failures counts swallowed failures per category.
	Failures map[FailureCategory]int
}

// IndexResult is the outcome of one indexing run.
type IndexResult struct {
	// Documents is the number of unprocessed documents in the batch.
	Documents int

	// Entries is the number of index entries produced.
	Entries int

	// Failures counts swallowed failures per category.
	Failures map[FailureCategory]int
}

// RunReport is the user-visible summary of a crawl and/or index run.
type RunReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// SeedURL is the URL the crawl started from. Empty for index-only runs.
	SeedURL string `json:"seed_url,omitempty"`

	// MaxPages is the crawl budget.
	MaxPages int `json:"max_pages,omitempty"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Visited is the number of URLs claimed.
	Visited int `json:"visited"`

	// Stored is the number of documents stored.
	Stored int `json:"stored"`

	// Indexed is the number of documents in the index batch.
	Indexed int `json:"indexed"`

	// Entries is the number of index entries produced.
	Entries int `json:"entries"`

	// Failures counts failures per category.
	Failures map[FailureCategory]int `json:"failures,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// TimedOut indicates that the run was cancelled before it finished.
	TimedOut bool `json:"timed_out"`

	// Error holds the last step error, if any.
	Error string `json:"error,omitempty"`
}

// NewRunReport creates a report with a fresh run ID.
func NewRunReport(seedURL string, maxPages int) *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		SeedURL:   seedURL,
		MaxPages:  maxPages,
		StartedAt: time.Now(),
		Failures:  make(map[FailureCategory]int),
	}
}

// ApplyCrawl folds a crawl result into the report.
func (r *RunReport) ApplyCrawl(res *CrawlResult) {
	if res == nil {
		return
	}
	r.Visited = len(res.Visited)
	r.Stored = res.Stored
	r.mergeFailures(res.Failures)
}

// ApplyIndex folds an index result into the report.
func (r *RunReport) ApplyIndex(res *IndexResult) {
	if res == nil {
		return
	}
	r.Indexed = res.Documents
	r.Entries = res.Entries
	r.mergeFailures(res.Failures)
}

// TotalFailures returns the sum of all failure counters.
func (r *RunReport) TotalFailures() int {
	total := 0
	for _, n := range r.Failures {
		total += n
	}
	return total
}

// FailureCategories returns the categories with a non-zero count, sorted.
func (r *RunReport) FailureCategories() []FailureCategory {
	cats := make([]FailureCategory, 0, len(r.Failures))
	for c, n := range r.Failures {
		if n > 0 {
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *RunReport) mergeFailures(failures map[FailureCategory]int) {
	if r.Failures == nil {
		r.Failures = make(map[FailureCategory]int)
	}
	for c, n := range failures {
		r.Failures[c] += n
	}
}
