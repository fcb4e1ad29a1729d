package model

import (
	"errors"
	"net/url"
	"strings"
)

// ErrNotAbsoluteURL is returned when a URL has no scheme or host.
var ErrNotAbsoluteURL = errors.New("url is not absolute")

// NormalizeURL returns the canonical form of an absolute URL.
// The canonical form is used as the identity key for deduplication.
//
// Normalization:
//  1. Fragment (#anchor) is removed; it never changes the document
//  2. Scheme and host are lower-cased
//  3. An empty path becomes "/"
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrNotAbsoluteURL
	}
	return canonical(u), nil
}

// ResolveURL resolves href against base and returns its canonical form.
// Scheme-relative references ("//host/path") inherit the base scheme.
func ResolveURL(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	u := base.ResolveReference(ref)
	if u.Scheme == "" || u.Host == "" {
		return "", ErrNotAbsoluteURL
	}
	return canonical(u), nil
}

// canonical applies the normalization rules in place and returns the string form.
func canonical(u *url.URL) string {
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
