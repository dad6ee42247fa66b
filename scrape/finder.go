// Package scrape discovers the JavaScript assets an HTML page references.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fwojciec/jsaudit"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Compile-time interface verification.
var _ jsaudit.ScriptFinder = (*Finder)(nil)

// Finder implements jsaudit.ScriptFinder by parsing the page HTML.
type Finder struct {
	fetcher jsaudit.Fetcher
}

// NewFinder creates a Finder that retrieves pages with fetcher.
func NewFinder(fetcher jsaudit.Fetcher) *Finder {
	return &Finder{fetcher: fetcher}
}

// Find fetches pageURL and returns its external scripts in document order.
func (f *Finder) Find(ctx context.Context, pageURL string) ([]jsaudit.ScriptRef, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("scrape: invalid page URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("scrape: unsupported page URL scheme %q", base.Scheme)
	}

	page, err := f.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, fmt.Errorf("scrape: no content returned for %s", pageURL)
	}

	return Extract(page.Content, base)
}

// Extract returns the script URLs referenced by document, resolved against
// base (or the document's <base href>), deduplicated, in document order.
func Extract(document string, base *url.URL) ([]jsaudit.ScriptRef, error) {
	doc, err := html.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("scrape: parsing HTML: %w", err)
	}

	if href, ok := findBaseHref(doc); ok {
		if u, err := base.Parse(href); err == nil {
			base = u
		}
	}

	var refs []jsaudit.ScriptRef
	seen := make(map[string]bool)
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		u, err := base.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		u.Fragment = ""
		s := u.String()
		if seen[s] {
			return
		}
		seen[s] = true
		refs = append(refs, jsaudit.ScriptRef{URL: s, Size: -1})
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script:
				if src, ok := attr(n, "src"); ok {
					add(src)
				}
			case atom.Link:
				if isScriptLink(n) {
					if href, ok := attr(n, "href"); ok {
						add(href)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return refs, nil
}

// isScriptLink reports whether a <link> element preloads a script.
func isScriptLink(n *html.Node) bool {
	rel, _ := attr(n, "rel")
	as, _ := attr(n, "as")
	for _, token := range strings.Fields(strings.ToLower(rel)) {
		switch token {
		case "modulepreload":
			// as defaults to script for modulepreload.
			return as == "" || strings.EqualFold(as, "script")
		case "preload", "prefetch":
			if strings.EqualFold(as, "script") {
				return true
			}
		}
	}
	return false
}

func findBaseHref(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && n.DataAtom == atom.Base {
		if href, ok := attr(n, "href"); ok {
			return href, true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href, ok := findBaseHref(c); ok {
			return href, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
