package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// It maps equivalent URL spellings to a single canonical representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Path is cleaned (trailing slashes removed, except for root "/")
//   - Fragments are removed
//   - Query parameters are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
//   - Context-free: does not depend on crawl history
func Canonicalize(sourceUrl url.URL) url.URL {
	// Create a copy to avoid mutating the original
	canonical := sourceUrl

	// Lowercase scheme and host
	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	// Remove default port if present
	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	// Clean the path: remove trailing slashes (except root)
	if len(canonical.Path) > 1 {
		canonical.Path = stripTrailingSlash(canonical.Path)
	}

	// Remove fragment (anchor)
	canonical.Fragment = ""
	canonical.RawFragment = ""

	// Remove query parameters
	canonical.RawQuery = ""
	canonical.ForceQuery = false

	return canonical
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// stripTrailingSlash removes trailing slashes from a path.
func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}

// NormalizeForDedup implements the crawler's dedup-key normalization:
// lowercase scheme+host, strip fragment, collapse trailing slash, sort
// query keys. Unlike Canonicalize it keeps the query string, since two
// URLs differing only in query-key order must still collide.
func NormalizeForDedup(sourceUrl url.URL) url.URL {
	n := sourceUrl
	n.Scheme = lowerASCII(n.Scheme)
	n.Host = lowerASCII(n.Host)
	if len(n.Path) > 1 {
		n.Path = stripTrailingSlash(n.Path)
	}
	n.Fragment = ""
	n.RawFragment = ""
	if n.RawQuery != "" {
		values := n.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			vs := values[k]
			sort.Strings(vs)
			for _, v := range vs {
				parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		n.RawQuery = strings.Join(parts, "&")
	}
	return n
}

// Key returns the string form suitable for use as a dedup map key.
func Key(sourceUrl url.URL) string {
	normalized := NormalizeForDedup(sourceUrl)
	return normalized.String()
}

// Resolve turns href (possibly relative) into an absolute URL against base.
// Returns ok=false for hrefs that cannot or should not be followed
// (javascript:, mailto:, empty, unparsable).
func Resolve(base url.URL, href string) (resolved url.URL, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return url.URL{}, false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return url.URL{}, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return url.URL{}, false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return url.URL{}, false
	}
	return *abs, true
}

// SameRegistrableHost reports whether two hosts should be treated as the
// same crawl scope. This implementation compares the full hostname
// (case-insensitive); it does not attempt public-suffix-aware eTLD+1
// comparison.
func SameRegistrableHost(a, b string) bool {
	return lowerASCII(a) == lowerASCII(b)
}
