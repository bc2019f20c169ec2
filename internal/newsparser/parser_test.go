package newsparser_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scraptool/corefetch/internal/crawler"
	"github.com/scraptool/corefetch/internal/extractor"
	"github.com/scraptool/corefetch/internal/newsparser"
)

func scmpResult() crawler.CrawlResult {
	page1 := strings.Join([]string{
		"Hong Kong",
		"Government announces new housing policy",
		"More details expected next week",
		"13 Feb 2026 - 10:15PM",
		"Jane Smith",
		"Opinion | The case for stricter rent controls",
		"13 Feb 2026 - 11:00PM",
	}, "\n")
	page2 := strings.Join([]string{
		"Hong Kong",
		"Government announces new housing policy",
		"More details expected next week",
		"13 Feb 2026 - 10:15PM",
	}, "\n")

	return crawler.CrawlResult{
		StartURL: "https://www.scmp.com/",
		Depth:    1,
		Pages: []extractor.PageContent{
			{URL: "https://www.scmp.com/hong-kong", Text: page1, Depth: 1},
			{URL: "https://www.scmp.com/hong-kong-2", Text: page2, Depth: 1},
		},
	}
}

func TestParse_SCMPHappyPath(t *testing.T) {
	crawlTime := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	feed, err := newsparser.Parse(scmpResult(), crawlTime, "v1", "scmp")
	require.Nil(t, err)

	assert.Equal(t, 2, feed.Meta.StoriesExtracted)
	assert.Equal(t, 1, feed.Meta.DuplicatesRemoved)

	var opinion *newsparser.Story
	for i := range feed.Stories {
		if feed.Stories[i].ContentType == newsparser.ContentTypeOpinion {
			opinion = &feed.Stories[i]
		}
	}
	require.NotNil(t, opinion)
	require.NotNil(t, opinion.Author)
	assert.Equal(t, "Jane Smith", *opinion.Author)

	for _, s := range feed.Stories {
		if s.Headline == "Government announces new housing policy" {
			assert.Equal(t, "Hong Kong", s.Section)
			require.NotNil(t, s.Published)
			assert.ElementsMatch(t, []string{"https://www.scmp.com/hong-kong", "https://www.scmp.com/hong-kong-2"}, s.SeenOnPages)
		}
	}
}

func TestParse_MissingInputsIsCrawlInputError(t *testing.T) {
	_, err := newsparser.Parse(crawler.CrawlResult{}, time.Time{}, "v1", "scmp")
	require.NotNil(t, err)
	assert.Equal(t, newsparser.ErrCauseCrawlInput, err.Cause)
}

func TestParse_UnknownProfileFallsBackToGeneric(t *testing.T) {
	crawlTime := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	feed, err := newsparser.Parse(scmpResult(), crawlTime, "v1", "not-a-real-profile")
	require.Nil(t, err)
	assert.Equal(t, newsparser.GenericProfileName, feed.Meta.SourceProfile)
}

func TestParse_RelativeDateAnchor(t *testing.T) {
	crawlTime := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	text := strings.Join([]string{
		"World",
		"Markets rally after rate decision",
		"2 hours ago",
	}, "\n")
	result := crawler.CrawlResult{
		StartURL: "https://www.scmp.com/",
		Pages: []extractor.PageContent{
			{URL: "https://www.scmp.com/world", Text: text, Depth: 1},
		},
	}
	feed, err := newsparser.Parse(result, crawlTime, "v1", "scmp")
	require.Nil(t, err)
	require.Len(t, feed.Stories, 1)
	require.NotNil(t, feed.Stories[0].Published)
	assert.Equal(t, "2026-02-14T10:00:00Z", *feed.Stories[0].Published)
}

func TestParse_NoDateAnchorProducesNoStories(t *testing.T) {
	crawlTime := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	result := crawler.CrawlResult{
		StartURL: "https://www.scmp.com/",
		Pages: []extractor.PageContent{
			{URL: "https://www.scmp.com/x", Text: "just some text\nwith no date anchors at all", Depth: 1},
		},
	}
	feed, err := newsparser.Parse(result, crawlTime, "v1", "scmp")
	require.Nil(t, err)
	assert.Empty(t, feed.Stories)
}

func TestParse_Idempotent(t *testing.T) {
	crawlTime := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	feed1, err1 := newsparser.Parse(scmpResult(), crawlTime, "v1", "scmp")
	feed2, err2 := newsparser.Parse(scmpResult(), crawlTime, "v1", "scmp")
	require.Nil(t, err1)
	require.Nil(t, err2)
	require.Len(t, feed1.Stories, len(feed2.Stories))
	for i := range feed1.Stories {
		assert.Equal(t, feed1.Stories[i].StoryID, feed2.Stories[i].StoryID)
	}
}

func TestParse_NoDuplicateStoryIDs(t *testing.T) {
	crawlTime := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	feed, err := newsparser.Parse(scmpResult(), crawlTime, "v1", "scmp")
	require.Nil(t, err)
	seen := make(map[string]bool)
	for _, s := range feed.Stories {
		assert.False(t, seen[s.StoryID], "duplicate story_id %s", s.StoryID)
		seen[s.StoryID] = true
	}
}
