package newsparser

import (
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/scraptool/corefetch/internal/crawler"
	"github.com/scraptool/corefetch/internal/extractor"
)

// IngestFeed parses an RSS/Atom document into the same CrawlResult shape the
// crawler produces, so a source that publishes a feed alongside its HTML can
// feed the same Parse pipeline without a full crawl. This is a bonus
// discovery path, not a replacement for the crawler.
func IngestFeed(raw string, sourceURL string) (crawler.CrawlResult, error) {
	parsed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return crawler.CrawlResult{}, fmt.Errorf("newsparser: parsing feed: %w", err)
	}

	var lines []string
	for _, item := range parsed.Items {
		if item.Title == "" || item.PublishedParsed == nil {
			continue
		}
		lines = append(lines, item.Title)
		lines = append(lines, item.PublishedParsed.UTC().Format("2 Jan 2006 - 3:04PM"))
	}

	text := ""
	for i, l := range lines {
		if i > 0 {
			text += "\n"
		}
		text += l
	}

	return crawler.CrawlResult{
		StartURL: sourceURL,
		Depth:    1,
		Pages: []extractor.PageContent{
			{URL: sourceURL, Text: text, Depth: 1},
		},
	}, nil
}
