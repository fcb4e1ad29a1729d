package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// MaxContentSize is the maximum size of raw page content kept per document.
// Larger bodies are truncated to this size before they are stored.
const MaxContentSize = 5 * 1024 * 1024 // 5 MB

// Document is a successfully fetched page.
// It is created once per URL and never mutated after it is handed to the store.
type Document struct {
	// URL is the canonical URL of the page.
	URL string `json:"url"`

	// Content is the raw response body (HTML).
	Content []byte `json:"-"`

	// Text is the whitespace-joined visible text of the page.
	Text string `json:"text"`

	// Images contains the resolved src attributes of <img> elements.
	Images []string `json:"images,omitempty"`

	// Hash is the SHA3-256 hash of Content, used to spot duplicated articles
	// served under different titles (redirects).
	Hash string `json:"hash"`

	// FetchedAt is when the page was downloaded.
	FetchedAt time.Time `json:"fetched_at"`
}

// ComputeHash calculates and sets the SHA3-256 hash of the document content.
func (d *Document) ComputeHash() {
	if len(d.Content) == 0 {
		d.Hash = ""
		return
	}
	sum := sha3.Sum256(d.Content)
	d.Hash = hex.EncodeToString(sum[:])
}

// TruncateContent ensures Content doesn't exceed MaxContentSize.
func (d *Document) TruncateContent() {
	if len(d.Content) > MaxContentSize {
		d.Content = d.Content[:MaxContentSize]
	}
}

// UnprocessedDocument is a stored page that has not been indexed yet.
type UnprocessedDocument struct {
	URL     string
	Content []byte
}

// TextDocument is the indexer's view of a document: a URL and its plain text.
type TextDocument struct {
	URL  string
	Text string
}

// IndexEntry is the relevance weight of one word in one document.
// Only entries with a strictly positive weight are ever produced.
type IndexEntry struct {
	Word   string  `json:"word"`
	URL    string  `json:"url"`
	Weight float64 `json:"weight"`
}
