package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is a typed view over one element of a parsed page.
type Node interface {
	// FindOne returns the first descendant matching selector.
	FindOne(selector string) (Node, bool)
	// FindAll returns every descendant matching selector in document order.
	FindAll(selector string) []Node
	// Attr reads an attribute of the element.
	Attr(name string) (string, bool)
	// Text returns the combined, trimmed text content.
	Text() string
}

// Document is the root node of a fetched page.
type Document interface {
	Node
}

type selection struct {
	sel *goquery.Selection
}

// ParseDocument parses HTML into a queryable document.
func ParseDocument(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("data cannot be parsed as HTML: %w", err)
	}

	return selection{sel: doc.Selection}, nil
}

// MustParseString parses an HTML string and panics on failure. Intended for tests and fixtures.
func MustParseString(html string) Document {
	doc, err := ParseDocument(strings.NewReader(html))
	if err != nil {
		panic(err)
	}

	return doc
}

func (s selection) FindOne(selector string) (Node, bool) {
	found := s.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, false
	}

	return selection{sel: found}, true
}

func (s selection) FindAll(selector string) []Node {
	found := s.sel.Find(selector)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, el *goquery.Selection) {
		nodes = append(nodes, selection{sel: el})
	})

	return nodes
}

func (s selection) Attr(name string) (string, bool) {
	return s.sel.Attr(name)
}

func (s selection) Text() string {
	return strings.TrimSpace(s.sel.Text())
}
