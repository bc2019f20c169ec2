package crawler

import "github.com/scraptool/corefetch/internal/extractor"

// MinDepth/MaxDepth and MinMaxPagesPerLevel/MaxMaxPagesPerLevel bound the
// crawl's depth and per-level page cap.
const (
	MinDepth                = 1
	MaxDepth                = 3
	MinMaxPagesPerLevel     = 1
	MaxMaxPagesPerLevel     = 20
	DefaultMaxPagesPerLevel = 10
)

// CrawlRequest is the crawler's input contract.
type CrawlRequest struct {
	StartURL         string
	Depth            int
	MaxPagesPerLevel int
	Selector         string
	Profile          string
	RespectRobots    bool
	TimeoutSeconds   int
}

// ResolvedDepth clamps Depth to [MinDepth, MaxDepth], defaulting to 1.
func (r CrawlRequest) ResolvedDepth() int {
	if r.Depth == 0 {
		return MinDepth
	}
	if r.Depth < MinDepth {
		return MinDepth
	}
	if r.Depth > MaxDepth {
		return MaxDepth
	}
	return r.Depth
}

// ResolvedMaxPagesPerLevel clamps MaxPagesPerLevel to
// [MinMaxPagesPerLevel, MaxMaxPagesPerLevel], defaulting to 10.
func (r CrawlRequest) ResolvedMaxPagesPerLevel() int {
	if r.MaxPagesPerLevel == 0 {
		return DefaultMaxPagesPerLevel
	}
	if r.MaxPagesPerLevel < MinMaxPagesPerLevel {
		return MinMaxPagesPerLevel
	}
	if r.MaxPagesPerLevel > MaxMaxPagesPerLevel {
		return MaxMaxPagesPerLevel
	}
	return r.MaxPagesPerLevel
}

// FailedFetch is a placeholder entry for a page that failed to fetch;
// failures never abort the crawl.
type FailedFetch struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// CrawlResult aggregates every page fetched across all levels plus any
// failed fetches.
type CrawlResult struct {
	StartURL string                  `json:"start_url"`
	Depth    int                     `json:"depth"`
	Pages    []extractor.PageContent `json:"pages"`
	Failed   []FailedFetch           `json:"failed"`
}
