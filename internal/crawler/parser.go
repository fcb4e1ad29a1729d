package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/wikindex/internal/model"
)

// Parser extracts links and images from HTML content.
//
// Design decision: We use golang.org/x/net/html for link discovery rather
// than regex because it correctly handles the malformed markup common on
// the web and gives us the raw href before resolution, which the link
// filter needs to recognise same-page anchors.
type Parser struct {
	// baseURL is the URL of the page being parsed, used for resolving relative URLs.
	baseURL *url.URL

	// filter selects the links that are followed.
	filter LinkFilter
}

// ParseResult contains the information extracted from one page.
type ParseResult struct {
	// ArticleLinks are the deduplicated links accepted by the LinkFilter.
	ArticleLinks []string

	// Images contains resolved <img> sources.
	Images []string
}

// NewParser creates a Parser for a page at baseURL.
func NewParser(baseURL string, filter LinkFilter) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u, filter: filter}, nil
}

// Parse parses HTML content and extracts links and images.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}
	return p.ParseNode(doc), nil
}

// ParseNode extracts links and images from an already parsed document.
func (p *Parser) ParseNode(doc *html.Node) *ParseResult {
	result := &ParseResult{
		ArticleLinks: make([]string, 0),
		Images:       make([]string, 0),
	}
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			p.processElement(n, result, seen)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result
}

// processElement handles HTML element nodes.
func (p *Parser) processElement(n *html.Node, result *ParseResult, seen map[string]bool) {
	switch n.Data {
	case "a":
		href := getAttr(n, "href")
		if skipHref(href) {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if !p.filter.Accept(href, p.baseURL.ResolveReference(ref)) {
			return
		}

		canonical, err := model.ResolveURL(p.baseURL, href)
		if err != nil {
			return
		}
		if !seen[canonical] {
			seen[canonical] = true
			result.ArticleLinks = append(result.ArticleLinks, canonical)
		}

	case "img":
		if src := getAttr(n, "src"); src != "" {
			if resolved, err := model.ResolveURL(p.baseURL, src); err == nil {
				result.Images = append(result.Images, resolved)
			}
		}
	}
}

// skipHref reports hrefs that can never be pages.
func skipHref(href string) bool {
	href = strings.TrimSpace(href)
	return href == "" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
