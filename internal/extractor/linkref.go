package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkKind classifies a LinkRef by what it points at.
type LinkKind string

const (
	KindNavigation LinkKind = "navigation"
	KindImage      LinkKind = "image"
	KindAnchor     LinkKind = "anchor"
)

// LinkRef is a link or image reference exactly as authored, unresolved
// against the page's base URL. Consumers that need an absolute URL use
// Links/Images instead; LinkRef exists for callers that want the raw
// attribute value and its kind.
type LinkRef struct {
	Raw  string   `json:"raw"`
	Kind LinkKind `json:"kind"`
}

// extractLinkRefs walks scope in document order collecting every <a href>
// and <img src> as a classified LinkRef.
func extractLinkRefs(scope *goquery.Selection) []LinkRef {
	var refs []LinkRef
	scope.Find("a[href], img[src]").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "a":
			if href, ok := s.Attr("href"); ok {
				refs = append(refs, toLinkRef("a", href))
			}
		case "img":
			if src, ok := s.Attr("src"); ok {
				refs = append(refs, toLinkRef("img", src))
			}
		}
	})
	return refs
}

// toLinkRef classifies a raw attribute value by the tag it came from:
// images are always KindImage, fragment-only anchors (#section) are
// KindAnchor, and every other <a href> is KindNavigation.
func toLinkRef(tag, raw string) LinkRef {
	var kind LinkKind
	switch strings.ToLower(tag) {
	case "img":
		kind = KindImage
	case "a":
		if strings.HasPrefix(raw, "#") {
			kind = KindAnchor
		} else {
			kind = KindNavigation
		}
	default:
		kind = KindNavigation
	}
	return LinkRef{Raw: raw, Kind: kind}
}
