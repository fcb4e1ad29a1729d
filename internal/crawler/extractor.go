package crawler

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Extractor turns a fetched page into links, text and image references.
// Malformed content yields empty results, never an error.
type Extractor interface {
	// Extract returns everything the crawler keeps from one page.
	Extract(raw []byte, baseURL string) Page
	ExtractLinks(raw []byte, baseURL string) []string
	ExtractText(raw []byte) string
	ExtractImages(raw []byte, baseURL string) []string
}

// Page is the content extracted from one fetched page.
type Page struct {
	// Links are the deduplicated article links accepted by the LinkFilter.
	Links []string

	// Images contains resolved <img> sources.
	Images []string

	// Text is the visible text joined by single spaces.
	Text string
}

// HTMLExtractor is the Extractor for HTML pages.
type HTMLExtractor struct {
	filter LinkFilter
}

// NewHTMLExtractor creates an HTMLExtractor that follows links accepted by filter.
func NewHTMLExtractor(filter LinkFilter) *HTMLExtractor {
	return &HTMLExtractor{filter: filter}
}

// Extract parses raw once and returns its links, images and text.
// An unparseable baseURL leaves Links and Images empty.
func (e *HTMLExtractor) Extract(raw []byte, baseURL string) Page {
	page := Page{Links: []string{}, Images: []string{}}
	if len(raw) == 0 {
		return page
	}
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return page
	}

	if p, err := NewParser(baseURL, e.filter); err == nil {
		result := p.ParseNode(root)
		page.Links = result.ArticleLinks
		page.Images = result.Images
	}
	// Text extraction removes nodes, so it runs after the link walk.
	page.Text = nodeText(root)
	return page
}

// ExtractLinks returns the deduplicated article links on the page.
func (e *HTMLExtractor) ExtractLinks(raw []byte, baseURL string) []string {
	return e.Extract(raw, baseURL).Links
}

// ExtractImages returns the resolved image sources on the page.
func (e *HTMLExtractor) ExtractImages(raw []byte, baseURL string) []string {
	return e.Extract(raw, baseURL).Images
}

// ExtractText returns the visible text of the page joined by single spaces.
// Script, style and noscript contents are dropped.
func (e *HTMLExtractor) ExtractText(raw []byte) string {
	return ExtractText(raw)
}

// ExtractText is the package-level form of HTMLExtractor.ExtractText.
// The indexer uses it to turn stored HTML back into text.
func ExtractText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	return nodeText(root)
}

// nodeText strips script, style and noscript elements from root and returns
// the remaining text with whitespace collapsed.
func nodeText(root *html.Node) string {
	doc := goquery.NewDocumentFromNode(root)
	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	for _, n := range doc.Selection.Nodes {
		collectText(n, &sb)
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// collectText appends every text node under n separated by spaces, so
// adjacent block elements do not run their words together.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
