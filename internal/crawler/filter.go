package crawler

import (
	"net/url"
	"strings"
)

// Defaults for English Wikipedia.
const (
	DefaultTargetHost  = "en.wikipedia.org"
	DefaultArticlePath = "/wiki/"
)

// LinkFilter decides whether a discovered href points to an article page
// that should be crawled.
//
// A link is accepted only if:
//  1. it is not a same-page anchor ("#...", including "#cite_note-...")
//  2. it resolves to the target host
//  3. its path starts with the article prefix
//  4. its path has no namespace separator (":"), which excludes
//     Special:, File:, Talk: and other administrative pages
//  5. it carries no fragment
type LinkFilter struct {
	// Host is the only host whose links are followed.
	Host string

	// PathPrefix is the path prefix of article pages.
	PathPrefix string
}

// NewLinkFilter creates a LinkFilter for the given host.
// An empty host selects DefaultTargetHost.
func NewLinkFilter(host string) LinkFilter {
	if host == "" {
		host = DefaultTargetHost
	}
	return LinkFilter{
		Host:       strings.ToLower(host),
		PathPrefix: DefaultArticlePath,
	}
}

// Accept reports whether the resolved link u should be enqueued.
// href is the raw attribute value u was resolved from.
func (lf LinkFilter) Accept(href string, u *url.URL) bool {
	if strings.HasPrefix(strings.TrimSpace(href), "#") {
		return false
	}
	if u.Fragment != "" || strings.Contains(href, "#") {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if !strings.EqualFold(u.Hostname(), lf.Host) {
		return false
	}
	if !strings.HasPrefix(u.Path, lf.PathPrefix) || len(u.Path) == len(lf.PathPrefix) {
		return false
	}
	if strings.Contains(u.Path, ":") {
		return false
	}
	return true
}
