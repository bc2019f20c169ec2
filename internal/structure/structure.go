// Package structure reports a page's layout — sections, navigation, link
// split, forms, and heading outline — without extracting body text. Heading
// levels are stabilized on the way out so a skipped level (h1 straight to
// h3) never appears in the outline; jumping back to a shallower level is
// left alone since that starts a new section rather than skipping one.
package structure

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

var sectionTags = []string{
	"main", "article", "section", "header", "footer", "aside", "nav", "div",
}

// Analyzer produces a Structure from decoded HTML.
type Analyzer struct{}

func NewAnalyzer() Analyzer {
	return Analyzer{}
}

func (a Analyzer) Analyze(pageURL url.URL, htmlBytes []byte, selector string) (Structure, *AnalysisError) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBytes))
	if err != nil {
		return Structure{}, &AnalysisError{
			Message: fmt.Sprintf("failed to parse HTML: %v", err),
			Cause:   ErrCauseEncoding,
		}
	}

	scope := doc.Selection
	if selector != "" {
		matched, selErr := safeFind(doc, selector)
		if selErr != nil {
			return Structure{}, &AnalysisError{Message: selErr.Error(), Cause: ErrCauseInvalidSelector}
		}
		if matched.Length() == 0 {
			return Structure{}, &AnalysisError{
				Message: fmt.Sprintf("no element matched selector %q", selector),
				Cause:   ErrCauseSelectorNotFound,
			}
		}
		scope = matched.First()
	}

	return Structure{
		Sections:      sections(scope),
		Navigation:    navigation(scope, pageURL),
		InternalLinks: internalLinks(scope, pageURL),
		ExternalLinks: externalLinks(scope, pageURL),
		Forms:         forms(scope),
		Outline:       outline(scope),
	}, nil
}

func safeFind(doc *goquery.Document, selector string) (sel *goquery.Selection, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid selector %q: %v", selector, r)
		}
	}()
	// goquery answers an invalid selector with an empty selection, so the
	// syntax is checked with cascadia first.
	if _, compileErr := cascadia.Compile(selector); compileErr != nil {
		return nil, fmt.Errorf("invalid selector %q: %v", selector, compileErr)
	}
	sel = doc.Find(selector)
	return sel, nil
}

func sections(scope *goquery.Selection) []Section {
	var out []Section
	selectorList := strings.Join(sectionTags, ", ")
	scope.Find(selectorList).Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		id, _ := s.Attr("id")
		var classes []string
		if cls, ok := s.Attr("class"); ok {
			classes = strings.Fields(cls)
		}
		out = append(out, Section{
			Tag:           node.Data,
			ID:            id,
			Classes:       classes,
			ChildrenCount: countElementChildren(node),
		})
	})
	return out
}

func countElementChildren(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			count++
		}
	}
	return count
}

func navigation(scope *goquery.Selection, base url.URL) []NavItem {
	var items []NavItem
	scope.Find(`nav, [role="navigation"]`).Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, ok := urlutil.Resolve(base, href)
		if !ok {
			return
		}
		items = append(items, NavItem{
			Text: strings.TrimSpace(s.Text()),
			URL:  resolved.String(),
		})
	})
	return items
}

func internalLinks(scope *goquery.Selection, base url.URL) []string {
	var out []string
	scope.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, ok := urlutil.Resolve(base, href)
		if !ok {
			return
		}
		if urlutil.SameRegistrableHost(resolved.Hostname(), base.Hostname()) {
			out = append(out, resolved.String())
		}
	})
	return out
}

func externalLinks(scope *goquery.Selection, base url.URL) []string {
	var out []string
	scope.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		resolved, ok := urlutil.Resolve(base, href)
		if !ok {
			return
		}
		if !urlutil.SameRegistrableHost(resolved.Hostname(), base.Hostname()) {
			out = append(out, resolved.String())
		}
	})
	return out
}

func forms(scope *goquery.Selection) []Form {
	var out []Form
	scope.Find("form").Each(func(_ int, s *goquery.Selection) {
		action, _ := s.Attr("action")
		method, ok := s.Attr("method")
		if !ok || method == "" {
			method = "GET"
		}
		var fields []string
		s.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
			if name, ok := field.Attr("name"); ok && name != "" {
				fields = append(fields, name)
			}
		})
		out = append(out, Form{
			Action: action,
			Method: strings.ToUpper(method),
			Fields: fields,
		})
	})
	return out
}

type rawHeading struct {
	level int
	text  string
}

func outline(scope *goquery.Selection) []OutlineItem {
	var raw []rawHeading
	scope.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		raw = append(raw, rawHeading{
			level: int(tag[1] - '0'),
			text:  strings.TrimSpace(s.Text()),
		})
	})
	return stabilizeHeadingLevels(raw)
}

// stabilizeHeadingLevels renumbers a document-order heading sequence so no
// level is skipped by more than one going deeper (h1 -> h3 is reported as
// h1 -> h2). Going backward to a shallower level is left unchanged, since
// that marks the start of a new section rather than a skip.
func stabilizeHeadingLevels(raw []rawHeading) []OutlineItem {
	out := make([]OutlineItem, 0, len(raw))
	prevEffective := 0
	for _, h := range raw {
		effective := h.level
		if prevEffective == 0 || h.level > prevEffective {
			if h.level > prevEffective+1 {
				effective = prevEffective + 1
			}
		}
		out = append(out, OutlineItem{Level: effective, Text: h.text})
		prevEffective = effective
	}
	return out
}
