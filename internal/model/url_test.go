package model

import (
	"errors"
	"net/url"
	"testing"
)

// TestNormalizeURL tests canonical URL normalization.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	t.Run("removes fragment", func(t *testing.T) {
		t.Parallel()

		got, err := NormalizeURL("https://en.wikipedia.org/wiki/Dog#History")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://en.wikipedia.org/wiki/Dog" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("lower-cases scheme and host but not path", func(t *testing.T) {
		t.Parallel()

		got, err := NormalizeURL("HTTPS://EN.Wikipedia.org/wiki/Go_(programming_language)")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://en.wikipedia.org/wiki/Go_(programming_language)" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty path becomes root", func(t *testing.T) {
		t.Parallel()

		got, err := NormalizeURL("https://en.wikipedia.org")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://en.wikipedia.org/" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("relative URL is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := NormalizeURL("/wiki/Dog")
		if !errors.Is(err, ErrNotAbsoluteURL) {
			t.Errorf("expected ErrNotAbsoluteURL, got %v", err)
		}
	})
}

// TestResolveURL tests resolution of hrefs against a base page.
func TestResolveURL(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://en.wikipedia.org/wiki/Cat")
	if err != nil {
		t.Fatalf("failed to parse base: %v", err)
	}

	t.Run("resolves root-relative path", func(t *testing.T) {
		t.Parallel()

		got, err := ResolveURL(base, "/wiki/Dog")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://en.wikipedia.org/wiki/Dog" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("scheme-relative form inherits base scheme", func(t *testing.T) {
		t.Parallel()

		got, err := ResolveURL(base, "//en.wikipedia.org/wiki/Dog")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://en.wikipedia.org/wiki/Dog" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("same-page fragment collapses to base", func(t *testing.T) {
		t.Parallel()

		got, err := ResolveURL(base, "#cite_note-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "https://en.wikipedia.org/wiki/Cat" {
			t.Errorf("got %q", got)
		}
	})
}
