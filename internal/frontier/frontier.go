package frontier

import (
	"context"
	"log/slog"
	"sync"
)

// VisitedChecker reports whether a URL was visited in a previous run.
// It is usually backed by the durable corpus store.
type VisitedChecker interface {
	IsVisited(ctx context.Context, url string) (bool, error)
}

// Frontier is a thread-safe FIFO of pending URLs with deduplication.
//
// A URL moves through three states: queued, in flight (dequeued but not yet
// released by its worker) and visited (claimed). Once seen, a URL is never
// queued again during the lifetime of the Frontier.
type Frontier struct {
	// mu guards every field below it.
	mu sync.Mutex

	// queue holds pending URLs in discovery order.
	queue []string

	// seen contains every URL ever queued or visited.
	seen map[string]struct{}

	// visited contains claimed URLs and URLs known from prior runs.
	visited map[string]struct{}

	// claimed lists URLs claimed in this run, in claim order.
	claimed []string

	// inFlight counts dequeued URLs whose worker has not called Release yet.
	inFlight int

	// stopped is the monotonic stop flag.
	stopped bool

	// durable is consulted by Claim for cross-run dedup. May be nil.
	durable VisitedChecker

	logger *slog.Logger
}

// Option configures a Frontier.
type Option func(*Frontier)

// WithVisitedChecker sets the durable store consulted before a claim succeeds.
func WithVisitedChecker(checker VisitedChecker) Option {
	return func(f *Frontier) {
		f.durable = checker
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Frontier) {
		f.logger = logger
	}
}

// New creates an empty Frontier.
func New(opts ...Option) *Frontier {
	f := &Frontier{
		queue:   make([]string, 0),
		seen:    make(map[string]struct{}),
		visited: make(map[string]struct{}),
		claimed: make([]string, 0),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.logger == nil {
		f.logger = slog.Default()
	}

	return f
}

// Enqueue adds url to the tail of the queue if it has not been queued or
// visited before and the frontier is not stopped.
// It reports whether the URL was added.
func (f *Frontier) Enqueue(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return false
	}
	if _, ok := f.seen[url]; ok {
		return false
	}

	f.seen[url] = struct{}{}
	f.queue = append(f.queue, url)
	return true
}

// Dequeue removes and returns the oldest queued URL without blocking.
// ok is false when the queue is empty or the frontier is stopped.
//
// A successful Dequeue marks the URL as in flight; the caller must call
// Release once it has finished with the URL (including enqueueing its links).
func (f *Frontier) Dequeue() (url string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped || len(f.queue) == 0 {
		return "", false
	}

	url = f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	f.inFlight++
	return url, true
}

// Release marks one dequeued URL as finished.
func (f *Frontier) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight > 0 {
		f.inFlight--
	}
}

// Claim atomically marks url as visited and reports whether the caller now
// owns it. For any URL, at most one Claim call ever returns true.
//
// Before the in-memory claim, the durable VisitedChecker is consulted so that
// URLs visited in previous runs are never claimed again. That check races with
// other processes writing the same store and is best effort only; a checker
// error is logged and treated as "not visited".
//
// Claim returns false once the frontier is stopped.
func (f *Frontier) Claim(ctx context.Context, url string) bool {
	f.mu.Lock()
	_, done := f.visited[url]
	stopped := f.stopped
	f.mu.Unlock()
	if done || stopped {
		return false
	}

	if f.durable != nil {
		visited, err := f.durable.IsVisited(ctx, url)
		if err != nil {
			f.logger.Warn("durable visited check failed", "url", url, "error", err)
		} else if visited {
			f.mu.Lock()
			f.seen[url] = struct{}{}
			f.visited[url] = struct{}{}
			f.mu.Unlock()
			return false
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stopped {
		return false
	}
	if _, ok := f.visited[url]; ok {
		return false
	}

	f.seen[url] = struct{}{}
	f.visited[url] = struct{}{}
	f.claimed = append(f.claimed, url)
	return true
}

// Stop sets the stop flag. It is monotonic: once set it is never cleared.
func (f *Frontier) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

// Stopped reports whether the stop flag is set.
func (f *Frontier) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

// Drained reports whether the queue is empty and no URL is in flight,
// meaning no worker can add more work.
func (f *Frontier) Drained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) == 0 && f.inFlight == 0
}

// IsVisited reports whether url was claimed in this run or is known to have
// been visited in a previous one.
func (f *Frontier) IsVisited(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[url]
	return ok
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Claimed returns the number of URLs claimed in this run.
func (f *Frontier) Claimed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claimed)
}

// Visited returns a copy of the URLs claimed in this run, in claim order.
func (f *Frontier) Visited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.claimed))
	copy(out, f.claimed)
	return out
}
