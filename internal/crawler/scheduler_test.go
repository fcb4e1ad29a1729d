package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/wikindex/internal/model"
)

const testHost = "en.wikipedia.org"

// fakeWiki serves a synthetic wiki where every page links to the next n pages.
type fakeWiki struct {
	mu      sync.Mutex
	fetches map[string]int
	fanout  int
	pages   int
	fail    map[string]error
}

func newFakeWiki(pages, fanout int) *fakeWiki {
	return &fakeWiki{
		fetches: make(map[string]int),
		fanout:  fanout,
		pages:   pages,
		fail:    make(map[string]error),
	}
}

func pageURL(i int) string {
	return fmt.Sprintf("https://%s/wiki/Page_%d", testHost, i)
}

func (w *fakeWiki) Fetch(ctx context.Context, u string) ([]byte, error) {
	w.mu.Lock()
	w.fetches[u]++
	err := w.fail[u]
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var n int
	if _, err := fmt.Sscanf(u, "https://"+testHost+"/wiki/Page_%d", &n); err != nil {
		return nil, &StatusError{URL: u, StatusCode: http.StatusNotFound}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<html><body><p>page %d text</p>", n)
	for i := 1; i <= w.fanout; i++ {
		if next := n + i; next < w.pages {
			fmt.Fprintf(&sb, `<a href="/wiki/Page_%d">p</a>`, next)
		}
	}
	sb.WriteString(`<a href="/wiki/Special:Random">r</a></body></html>`)
	return []byte(sb.String()), nil
}

func (w *fakeWiki) fetchCounts() map[string]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int, len(w.fetches))
	for k, v := range w.fetches {
		out[k] = v
	}
	return out
}

// memStore is an in-memory DocumentStore and VisitedStore.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]*model.Document
	visited map[string]bool
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{
		docs:    make(map[string]*model.Document),
		visited: make(map[string]bool),
	}
}

func (m *memStore) SaveDocument(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[doc.URL] = doc
	return nil
}

func (m *memStore) IsVisited(_ context.Context, u string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visited[u], nil
}

func (m *memStore) MarkVisited(_ context.Context, u string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visited[u] = true
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(f Fetcher, store *memStore, opts ...Option) *Scheduler {
	base := []Option{
		WithDelay(0),
		WithIdleBackoff(time.Millisecond),
		WithLogger(discardLogger()),
		WithVisitedStore(store),
	}
	return NewScheduler(f, NewHTMLExtractor(NewLinkFilter(testHost)), store, append(base, opts...)...)
}

func TestSchedulerRun(t *testing.T) {
	t.Parallel()

	t.Run("budget bounds visited pages", func(t *testing.T) {
		t.Parallel()

		const maxPages, workers = 10, 4
		wiki := newFakeWiki(1000, 5)
		store := newMemStore()
		s := newTestScheduler(wiki, store, WithMaxPages(maxPages), WithWorkers(workers))

		result, err := s.Run(context.Background(), pageURL(0))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if got := len(result.Visited); got < maxPages || got > maxPages+workers-1 {
			t.Errorf("visited = %d, want between %d and %d", got, maxPages, maxPages+workers-1)
		}
		for u, n := range wiki.fetchCounts() {
			if n != 1 {
				t.Errorf("%s fetched %d times", u, n)
			}
		}
		if result.Stored != len(result.Visited) {
			t.Errorf("stored = %d, want %d", result.Stored, len(result.Visited))
		}
		if len(result.Documents) != len(result.Visited) {
			t.Errorf("documents = %d, want %d", len(result.Documents), len(result.Visited))
		}
	})

	t.Run("crawl ends when no links remain", func(t *testing.T) {
		t.Parallel()

		wiki := newFakeWiki(5, 2)
		store := newMemStore()
		s := newTestScheduler(wiki, store, WithMaxPages(100), WithWorkers(3))

		result, err := s.Run(context.Background(), pageURL(0))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(result.Visited) != 5 {
			t.Errorf("visited = %d, want 5: %v", len(result.Visited), result.Visited)
		}
		if got := result.Documents[pageURL(3)]; got != "page 3 text p r" {
			t.Errorf("document text = %q", got)
		}
		if slices.Contains(result.Visited, "https://"+testHost+"/wiki/Special:Random") {
			t.Error("namespace page must not be visited")
		}
	})

	t.Run("failed fetch stays visited", func(t *testing.T) {
		t.Parallel()

		wiki := newFakeWiki(3, 2)
		wiki.fail[pageURL(1)] = fmt.Errorf("%w: connection reset", ErrFetch)
		store := newMemStore()
		s := newTestScheduler(wiki, store, WithMaxPages(10), WithWorkers(2))

		result, err := s.Run(context.Background(), pageURL(0))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !slices.Contains(result.Visited, pageURL(1)) {
			t.Errorf("failed page missing from visited: %v", result.Visited)
		}
		if _, ok := result.Documents[pageURL(1)]; ok {
			t.Error("failed page must not have a document")
		}
		if result.Failures[model.FailureFetch] != 1 {
			t.Errorf("fetch failures = %d, want 1", result.Failures[model.FailureFetch])
		}
		if wiki.fetchCounts()[pageURL(1)] != 1 {
			t.Error("failed page must not be retried")
		}
	})

	t.Run("store failure is counted and crawl continues", func(t *testing.T) {
		t.Parallel()

		wiki := newFakeWiki(3, 1)
		store := newMemStore()
		store.saveErr = errors.New("disk full")
		s := newTestScheduler(wiki, store, WithMaxPages(10), WithWorkers(1))

		result, err := s.Run(context.Background(), pageURL(0))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(result.Visited) != 3 {
			t.Errorf("visited = %d, want 3", len(result.Visited))
		}
		if result.Stored != 0 {
			t.Errorf("stored = %d, want 0", result.Stored)
		}
		if result.Failures[model.FailureStore] != 3 {
			t.Errorf("store failures = %d, want 3", result.Failures[model.FailureStore])
		}
	})

	t.Run("second run over the same store claims nothing", func(t *testing.T) {
		t.Parallel()

		wiki := newFakeWiki(4, 1)
		store := newMemStore()

		first, err := newTestScheduler(wiki, store, WithMaxPages(10)).Run(context.Background(), pageURL(0))
		if err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		if len(first.Visited) != 4 {
			t.Fatalf("first visited = %d, want 4", len(first.Visited))
		}

		second, err := newTestScheduler(wiki, store, WithMaxPages(10)).Run(context.Background(), pageURL(0))
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}
		if len(second.Visited) != 0 {
			t.Errorf("second visited = %v, want none", second.Visited)
		}
		if wiki.fetchCounts()[pageURL(0)] != 1 {
			t.Error("seed must not be fetched twice")
		}
	})

	t.Run("cancellation returns partial result", func(t *testing.T) {
		t.Parallel()

		slow := FetcherFunc(func(ctx context.Context, _ string) ([]byte, error) {
			<-ctx.Done()
			return nil, fmt.Errorf("%w: %w", ErrFetch, ctx.Err())
		})
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		result, err := newTestScheduler(slow, newMemStore()).Run(ctx, pageURL(0))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Run() error = %v, want deadline exceeded", err)
		}
		if result == nil || len(result.Visited) != 1 {
			t.Fatalf("result = %+v, want seed visited", result)
		}
		if len(result.Failures) != 0 {
			t.Errorf("failures = %v, want none for cancellation", result.Failures)
		}
	})

	t.Run("invalid seed", func(t *testing.T) {
		t.Parallel()

		_, err := newTestScheduler(newFakeWiki(1, 0), newMemStore()).Run(context.Background(), "not a url")
		if !errors.Is(err, model.ErrNotAbsoluteURL) {
			t.Errorf("Run() error = %v, want ErrNotAbsoluteURL", err)
		}
	})
}

func TestSchedulerWithHTTPFetcher(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/Start", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>start <a href="/wiki/Next">n</a> <a href="/wiki/Gone">g</a></body></html>`))
	})
	mux.HandleFunc("/wiki/Next", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>next <a href="/wiki/Start">s</a></body></html>`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore()
	s := NewScheduler(
		NewHTTPFetcher(WithHTTPClient(srv.Client())),
		NewHTMLExtractor(NewLinkFilter(u.Hostname())),
		store,
		WithDelay(0),
		WithIdleBackoff(time.Millisecond),
		WithRateLimit(1000),
		WithLogger(discardLogger()),
	)

	result, err := s.Run(context.Background(), srv.URL+"/wiki/Start")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Visited) != 3 {
		t.Errorf("visited = %v, want 3 urls", result.Visited)
	}
	if result.Failures[model.FailureStatus] != 1 {
		t.Errorf("status failures = %d, want 1", result.Failures[model.FailureStatus])
	}
	if result.Documents[srv.URL+"/wiki/Next"] != "next s" {
		t.Errorf("next text = %q", result.Documents[srv.URL+"/wiki/Next"])
	}
}
