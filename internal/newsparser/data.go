package newsparser

import "time"

// Story is a single parsed news item with provenance and quality signals.
type Story struct {
	StoryID      string   `json:"story_id"`
	Section      string   `json:"section,omitempty"`
	Headline     string   `json:"headline"`
	Subheadline  string   `json:"subheadline,omitempty"`
	ContentType  string   `json:"content_type"`
	Tags         []string `json:"tags,omitempty"`
	Author       *string  `json:"author,omitempty"`
	PublishedRaw string   `json:"published_raw,omitempty"`
	Published    *string  `json:"published,omitempty"`
	BodySnippet  string   `json:"body_snippet,omitempty"`
	CommentCount *int     `json:"comment_count,omitempty"`
	CrawlDepth   int      `json:"crawl_depth"`
	SeenOnPages  []string `json:"seen_on_pages"`
	Confidence   float64  `json:"confidence"`
	Warnings     []string `json:"warnings,omitempty"`
}

// Content type classification values.
const (
	ContentTypeNews      = "news"
	ContentTypeOpinion   = "opinion"
	ContentTypeAnalysis  = "analysis"
	ContentTypeVideo     = "video"
	ContentTypeSponsored = "sponsored"
)

const TagExclusive = "exclusive"

// FeedMeta carries the parse run's provenance and aggregate counters.
type FeedMeta struct {
	CrawlTimeUTC      time.Time `json:"crawl_time_utc"`
	ParserVersion     string    `json:"parser_version"`
	SourceProfile     string    `json:"source_profile"`
	StoriesExtracted  int       `json:"stories_extracted"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	Warnings          []string  `json:"warnings,omitempty"`
}

// Feed is the output of Parse: the deduplicated, classified set of stories
// discovered across every page of a CrawlResult.
type Feed struct {
	Meta    FeedMeta `json:"feed_meta"`
	Stories []Story  `json:"stories"`
}
