package extractor

/*
Responsibilities
- Parse HTML into a DOM tree
- Resolve title, visible text, links, headings, images, and meta tags
- Optionally scope visible text, links, headings and images to the first
  subtree matching a caller-supplied CSS selector; title and meta tags are
  always read from the whole document

No heuristic "find the main content" layer: the caller either gets the
whole document or an explicit selector-bounded subtree. Visible text is
collapsed to single spaces within a run of whitespace, with a newline
inserted at each block-level boundary.
*/

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/scraptool/corefetch/pkg/urlutil"
	"golang.org/x/net/html"
)

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "section": {}, "article": {}, "header": {}, "footer": {},
	"nav": {}, "aside": {}, "main": {}, "ul": {}, "ol": {}, "li": {}, "table": {},
	"tr": {}, "td": {}, "th": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {},
	"h6": {}, "blockquote": {}, "pre": {}, "br": {}, "hr": {}, "form": {},
}

// DomExtractor parses HTML into a PageContent: title, visible text, links,
// headings, images, meta tags, a markdown rendering, and classified link
// references. Empty wrapper elements and structurally duplicated siblings
// are pruned from the parsed document before any of those views are built,
// so stray markup doesn't show up twice in the output.
type DomExtractor struct{}

func NewDomExtractor() DomExtractor {
	return DomExtractor{}
}

// Extract parses htmlBytes (already decoded to UTF-8 by the fetch pipeline)
// and produces a PageContent relative to sourceURL. selector, if non-empty,
// scopes every field to the first matching subtree.
func (d DomExtractor) Extract(sourceURL url.URL, htmlBytes []byte, selector string) (PageContent, *ExtractionError) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		return PageContent{}, &ExtractionError{
			Message: fmt.Sprintf("failed to parse HTML: %v", err),
			Cause:   ErrCauseEncoding,
		}
	}
	for _, n := range doc.Nodes {
		pruneEmptyNodes(n)
		pruneDuplicateNodes(n)
	}

	scope := doc.Selection
	if selector != "" {
		matched, selErr := safeFind(doc, selector)
		if selErr != nil {
			return PageContent{}, &ExtractionError{
				Message: selErr.Error(),
				Cause:   ErrCauseInvalidSelector,
			}
		}
		if matched.Length() == 0 {
			return PageContent{}, &ExtractionError{
				Message: fmt.Sprintf("no element matched selector %q", selector),
				Cause:   ErrCauseSelectorNotFound,
			}
		}
		scope = matched.First()
	}

	title := extractTitle(doc)
	text := extractVisibleText(scope)
	links := extractLinks(scope, sourceURL)
	headings := extractHeadings(scope)
	images := extractImages(scope, sourceURL)
	meta := extractMeta(doc)
	markdown := renderMarkdown(scope.Nodes)
	linkRefs := extractLinkRefs(scope)

	return PageContent{
		URL:      sourceURL.String(),
		Title:    title,
		Text:     text,
		Markdown: markdown,
		Links:    links,
		Headings: headings,
		Images:   images,
		Meta:     meta,
		LinkRefs: linkRefs,
	}, nil
}

// safeFind compiles selector with cascadia, reporting invalid CSS syntax as
// an error (goquery itself answers an invalid selector with an empty
// selection), then runs it against doc. A panic during the search is also
// converted into an error.
func safeFind(doc *goquery.Document, selector string) (sel *goquery.Selection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid selector %q: %v", selector, r)
		}
	}()
	if _, compileErr := cascadia.Compile(selector); compileErr != nil {
		return nil, fmt.Errorf("invalid selector %q: %v", selector, compileErr)
	}
	sel = doc.Find(selector)
	return sel, nil
}

// extractTitle prefers <title>, falling back to the og:title meta tag.
func extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		return strings.TrimSpace(og)
	}
	return ""
}

// extractVisibleText walks the scoped subtree, skipping script/style/noscript
// content, collapsing whitespace runs to single spaces and inserting a
// newline at each block-element boundary.
func extractVisibleText(scope *goquery.Selection) string {
	var b strings.Builder
	for _, n := range scope.Nodes {
		walkText(n, &b)
	}
	collapsed := collapseSpaces(b.String())
	return strings.TrimSpace(collapsed)
}

func walkText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}
	if n.Type == html.ElementNode {
		if _, ok := blockElements[n.Data]; ok {
			b.WriteString("\n")
		}
	}
}

// collapseSpaces replaces every run of horizontal whitespace with a single
// space while preserving newlines inserted at block boundaries.
func collapseSpaces(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}

// extractLinks returns absolute-resolved links found in scope, excluding
// rel=nofollow and javascript:/mailto:/tel: targets.
func extractLinks(scope *goquery.Selection, base url.URL) []Link {
	var links []Link
	scope.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if rel, ok := s.Attr("rel"); ok && strings.Contains(strings.ToLower(rel), "nofollow") {
			return
		}
		href, _ := s.Attr("href")
		resolved, ok := urlutil.Resolve(base, href)
		if !ok {
			return
		}
		links = append(links, Link{
			URL:  resolved.String(),
			Text: strings.TrimSpace(s.Text()),
		})
	})
	return links
}

// extractHeadings preserves h1..h6 document order.
func extractHeadings(scope *goquery.Selection) []Heading {
	var headings []Heading
	const headingTags = "h1, h2, h3, h4, h5, h6"
	// Filter keeps the scope element itself when it is a heading (a
	// selector that matched an <h2>); Find adds the headings beneath it.
	scope.Filter(headingTags).AddSelection(scope.Find(headingTags)).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		level := int(tag[1] - '0')
		headings = append(headings, Heading{
			Level: level,
			Text:  strings.TrimSpace(s.Text()),
		})
	})
	return headings
}

// extractImages resolves <img src> against base.
func extractImages(scope *goquery.Selection, base url.URL) []Image {
	var images []Image
	scope.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		resolved, ok := urlutil.Resolve(base, src)
		if !ok {
			return
		}
		alt, _ := s.Attr("alt")
		images = append(images, Image{URL: resolved.String(), Alt: alt})
	})
	return images
}

// extractMeta pulls description, keywords, and every og:* property from the
// document head, regardless of selector scoping (meta tags live outside any
// content subtree).
func extractMeta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		content, hasContent := s.Attr("content")
		if !hasContent {
			return
		}
		key := strings.ToLower(name)
		if key == "" {
			key = strings.ToLower(property)
		}
		switch {
		case key == "description", key == "keywords":
			meta[key] = content
		case strings.HasPrefix(key, "og:"):
			meta[key] = content
		}
	})
	return meta
}
