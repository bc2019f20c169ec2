// Package crawler implements a depth-bounded same-domain crawl: a
// breadth-first walk over a site starting at start_url, capped at depth
// levels and max_pages_per_level pages per level, built on top of the fetch
// pipeline and content extractor.
package crawler

import (
	"context"
	"net/url"

	"github.com/scraptool/corefetch/internal/extractor"
	"github.com/scraptool/corefetch/internal/fetcher"
	"github.com/scraptool/corefetch/internal/obslog"
	"github.com/scraptool/corefetch/pkg/urlutil"
)

// Crawler drives the breadth-first, depth-bounded traversal.
type Crawler struct {
	fetcher   fetcher.Fetcher
	extractor extractor.DomExtractor
	logger    *obslog.Logger
}

func NewCrawler(f fetcher.Fetcher, x extractor.DomExtractor, logger *obslog.Logger) *Crawler {
	return &Crawler{fetcher: f, extractor: x, logger: logger}
}

// Crawl fetches and extracts pages up to req.ResolvedDepth() levels deep,
// starting at req.StartURL. Pages at depth d are fully processed before any
// page at depth d+1 begins. Failed fetches are recorded as placeholder
// entries and never abort the crawl.
func (c *Crawler) Crawl(ctx context.Context, req CrawlRequest) (CrawlResult, *CrawlError) {
	startURL, err := url.Parse(req.StartURL)
	if err != nil || startURL.Host == "" || (startURL.Scheme != "http" && startURL.Scheme != "https") {
		return CrawlResult{}, &CrawlError{
			Message: "start_url must be an absolute http(s) URL",
			Cause:   ErrCauseInvalidStartURL,
		}
	}

	depth := req.ResolvedDepth()
	maxPerLevel := req.ResolvedMaxPagesPerLevel()

	visited := NewSet[string]()
	visited.Add(urlutil.Key(*startURL))

	frontier := NewFIFOQueue[url.URL]()
	frontier.Enqueue(*startURL)

	result := CrawlResult{StartURL: req.StartURL, Depth: depth}

	for level := 1; level <= depth; level++ {
		current := frontier
		frontier = NewFIFOQueue[url.URL]()

		var levelPages []extractor.PageContent
		var levelLinkTargets []url.URL

		for {
			target, ok := current.Dequeue()
			if !ok {
				break
			}

			page, fetchErr := c.fetchOne(ctx, target, req, level)
			if fetchErr != nil {
				if c.logger != nil {
					c.logger.RecordError(ctx, "crawler", "Crawl", "fetch", "target_site", "fetch_failed", "see recovery hint", fetchErr.Error())
				}
				result.Failed = append(result.Failed, FailedFetch{URL: target.String(), Error: fetchErr.Error()})
				continue
			}

			levelPages = append(levelPages, page)
			for _, link := range page.Links {
				linkURL, parseErr := url.Parse(link.URL)
				if parseErr != nil {
					continue
				}
				levelLinkTargets = append(levelLinkTargets, *linkURL)
			}
		}

		result.Pages = append(result.Pages, levelPages...)

		if level == depth {
			break
		}

		admitted := 0
		for _, candidate := range levelLinkTargets {
			if admitted >= maxPerLevel {
				break
			}
			if candidate.Scheme != "http" && candidate.Scheme != "https" {
				continue
			}
			if !urlutil.SameRegistrableHost(candidate.Hostname(), startURL.Hostname()) {
				continue
			}
			key := urlutil.Key(candidate)
			if visited.Contains(key) {
				continue
			}
			visited.Add(key)
			frontier.Enqueue(candidate)
			admitted++
		}
	}

	return result, nil
}

func (c *Crawler) fetchOne(ctx context.Context, target url.URL, req CrawlRequest, level int) (extractor.PageContent, error) {
	fetchResult, fetchErr := c.fetcher.Fetch(ctx, fetcher.FetchRequest{
		URL:           target,
		Profile:       req.Profile,
		Selector:      req.Selector,
		TimeoutSecond: req.TimeoutSeconds,
		RespectRobots: req.RespectRobots,
	})
	if fetchErr != nil {
		return extractor.PageContent{}, fetchErr
	}

	page, extractErr := c.extractor.Extract(fetchResult.FinalURL, fetchResult.ContentBytes, req.Selector)
	if extractErr != nil {
		return extractor.PageContent{}, extractErr
	}
	page.Depth = level
	return page, nil
}
