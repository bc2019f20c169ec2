package extractor

import (
	"fmt"
	"hash/fnv"
	"strings"

	"golang.org/x/net/html"
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

var structuralElements = map[string]bool{
	"html": true, "head": true, "body": true, "main": true,
}

// pruneEmptyNodes removes element nodes that have no element children and
// no non-whitespace text, walking bottom-up so nested empty wrappers
// collapse all the way down. Void elements (img, br, hr, ...) and
// structural containers (html/head/body/main) are never removed even when
// empty.
func pruneEmptyNodes(n *html.Node) {
	if n == nil {
		return
	}
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	for _, c := range children {
		pruneEmptyNodes(c)
	}
	if n.Type == html.ElementNode && isEmptyElement(n) && !voidElements[n.Data] && !structuralElements[n.Data] {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func isEmptyElement(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			return false
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return false
			}
		}
	}
	return true
}

// pruneDuplicateNodes removes sibling elements that are structurally
// identical to one already seen under the same parent, keeping the first
// occurrence. Headings and semantic containers (main/article/header/
// footer/nav/aside) are exempt: two identical headings don't imply
// redundant markup the way two identical <div> wrappers do.
func pruneDuplicateNodes(root *html.Node) {
	seen := make(map[*html.Node]map[string]bool)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode && isDedupCandidate(n.Data) && n.Parent != nil {
			p := n.Parent
			if seen[p] == nil {
				seen[p] = make(map[string]bool)
			}
			sig := nodeSignature(n)
			if seen[p][sig] {
				p.RemoveChild(n)
				return
			}
			seen[p][sig] = true
		}
		var children []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		for _, c := range children {
			walk(c)
		}
	}
	walk(root)
}

func isDedupCandidate(tag string) bool {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return false
	}
	switch tag {
	case "main", "article", "header", "footer", "nav", "aside":
		return false
	default:
		return true
	}
}

func nodeSignature(n *html.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:%s|", n.Type, n.Data)
	for i, a := range n.Attr {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%s", a.Key, a.Val)
	}
	b.WriteByte('|')
	fmt.Fprintf(&b, "%d", nodeContentHash(n))
	return b.String()
}

func nodeContentHash(n *html.Node) uint64 {
	h := fnv.New64a()
	if n.Type == html.ElementNode {
		h.Write([]byte(n.Data))
		for _, a := range n.Attr {
			h.Write([]byte(a.Key))
			h.Write([]byte(a.Val))
		}
	} else if n.Type == html.TextNode {
		h.Write([]byte(strings.TrimSpace(n.Data)))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		fmt.Fprintf(h, "%d", nodeContentHash(c))
	}
	return h.Sum64()
}
