package frontier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// fakeChecker is a VisitedChecker backed by a map.
type fakeChecker struct {
	mu      sync.Mutex
	visited map[string]bool
	err     error
	calls   int
}

func (c *fakeChecker) IsVisited(_ context.Context, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.visited[url], nil
}

// TestFrontierFIFO tests queue ordering and dedup on enqueue.
func TestFrontierFIFO(t *testing.T) {
	t.Parallel()

	t.Run("dequeues in insertion order", func(t *testing.T) {
		t.Parallel()

		f := New()
		for _, u := range []string{"a", "b", "c"} {
			if !f.Enqueue(u) {
				t.Fatalf("expected %q to be enqueued", u)
			}
		}

		for _, want := range []string{"a", "b", "c"} {
			got, ok := f.Dequeue()
			if !ok {
				t.Fatalf("expected %q, got empty", want)
			}
			if got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
			f.Release()
		}
	})

	t.Run("dequeue on empty frontier does not block", func(t *testing.T) {
		t.Parallel()

		f := New()
		if _, ok := f.Dequeue(); ok {
			t.Error("expected empty dequeue")
		}
	})

	t.Run("duplicate enqueue is a no-op", func(t *testing.T) {
		t.Parallel()

		f := New()
		f.Enqueue("a")
		if f.Enqueue("a") {
			t.Error("expected second enqueue to be rejected")
		}
		if f.Len() != 1 {
			t.Errorf("expected 1 queued URL, got %d", f.Len())
		}
	})

	t.Run("enqueue of a dequeued URL is a no-op", func(t *testing.T) {
		t.Parallel()

		f := New()
		f.Enqueue("a")
		f.Dequeue()
		if f.Enqueue("a") {
			t.Error("expected URL to stay deduplicated after dequeue")
		}
	})

	t.Run("enqueue of a visited URL is a no-op", func(t *testing.T) {
		t.Parallel()

		f := New()
		if !f.Claim(context.Background(), "a") {
			t.Fatal("expected claim to succeed")
		}
		if f.Enqueue("a") {
			t.Error("expected visited URL to be rejected")
		}
		if f.Len() != 0 {
			t.Errorf("expected empty queue, got %d", f.Len())
		}
	})
}

// TestFrontierClaim tests the atomic check-and-mark.
func TestFrontierClaim(t *testing.T) {
	t.Parallel()

	t.Run("second claim of the same URL fails", func(t *testing.T) {
		t.Parallel()

		f := New()
		if !f.Claim(context.Background(), "a") {
			t.Fatal("expected first claim to succeed")
		}
		if f.Claim(context.Background(), "a") {
			t.Error("expected second claim to fail")
		}
		if f.Claimed() != 1 {
			t.Errorf("expected 1 claim, got %d", f.Claimed())
		}
	})

	t.Run("exactly one concurrent claim wins", func(t *testing.T) {
		t.Parallel()

		for round := range 20 {
			f := New()
			url := fmt.Sprintf("https://en.wikipedia.org/wiki/Page_%d", round)

			var wins atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})
			for range 32 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if f.Claim(context.Background(), url) {
						wins.Add(1)
					}
				}()
			}
			close(start)
			wg.Wait()

			if wins.Load() != 1 {
				t.Fatalf("round %d: expected exactly 1 winner, got %d", round, wins.Load())
			}
		}
	})

	t.Run("exactly one concurrent claim wins with durable checker", func(t *testing.T) {
		t.Parallel()

		checker := &fakeChecker{visited: map[string]bool{}}
		f := New(WithVisitedChecker(checker))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if f.Claim(context.Background(), "x") {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 1 {
			t.Errorf("expected exactly 1 winner, got %d", wins.Load())
		}
	})

	t.Run("URL visited in a prior run is not claimed", func(t *testing.T) {
		t.Parallel()

		checker := &fakeChecker{visited: map[string]bool{"old": true}}
		f := New(WithVisitedChecker(checker))

		if f.Claim(context.Background(), "old") {
			t.Error("expected claim of previously visited URL to fail")
		}
		if !f.IsVisited("old") {
			t.Error("expected previously visited URL to be remembered in memory")
		}
		if f.Enqueue("old") {
			t.Error("expected previously visited URL not to be re-enqueued")
		}
		if f.Claimed() != 0 {
			t.Errorf("expected 0 claims, got %d", f.Claimed())
		}
	})

	t.Run("durable checker error falls back to in-memory claim", func(t *testing.T) {
		t.Parallel()

		checker := &fakeChecker{err: errors.New("store unavailable")}
		f := New(WithVisitedChecker(checker))

		if !f.Claim(context.Background(), "a") {
			t.Error("expected claim to succeed despite checker error")
		}
	})

	t.Run("in-memory hit skips the durable check", func(t *testing.T) {
		t.Parallel()

		checker := &fakeChecker{visited: map[string]bool{}}
		f := New(WithVisitedChecker(checker))

		f.Claim(context.Background(), "a")
		f.Claim(context.Background(), "a")

		if checker.calls != 1 {
			t.Errorf("expected 1 durable call, got %d", checker.calls)
		}
	})
}

// TestFrontierStop tests the monotonic stop flag.
func TestFrontierStop(t *testing.T) {
	t.Parallel()

	f := New()
	f.Enqueue("a")
	f.Stop()

	if !f.Stopped() {
		t.Fatal("expected frontier to be stopped")
	}
	if f.Enqueue("b") {
		t.Error("expected enqueue after stop to be rejected")
	}
	if _, ok := f.Dequeue(); ok {
		t.Error("expected dequeue after stop to return empty")
	}
	if f.Claim(context.Background(), "c") {
		t.Error("expected claim after stop to fail")
	}

	f.Stop()
	if !f.Stopped() {
		t.Error("stop flag must stay set")
	}
}

// TestFrontierDrained tests in-flight accounting.
func TestFrontierDrained(t *testing.T) {
	t.Parallel()

	f := New()
	if !f.Drained() {
		t.Error("expected new frontier to be drained")
	}

	f.Enqueue("a")
	if f.Drained() {
		t.Error("expected frontier with queued URL not to be drained")
	}

	f.Dequeue()
	if f.Drained() {
		t.Error("expected frontier with in-flight URL not to be drained")
	}

	f.Release()
	if !f.Drained() {
		t.Error("expected frontier to be drained after release")
	}

	// Extra releases must not underflow
	f.Release()
	if !f.Drained() {
		t.Error("expected frontier to stay drained")
	}
}

// TestFrontierVisited tests the visited list copy.
func TestFrontierVisited(t *testing.T) {
	t.Parallel()

	f := New()
	f.Claim(context.Background(), "a")
	f.Claim(context.Background(), "b")

	visited := f.Visited()
	if len(visited) != 2 || visited[0] != "a" || visited[1] != "b" {
		t.Fatalf("unexpected visited list: %v", visited)
	}

	visited[0] = "mutated"
	if f.Visited()[0] != "a" {
		t.Error("Visited must return a copy")
	}
}
