// Package newsparser implements a profile-driven pipeline that turns a
// crawler.CrawlResult's page text into a deduplicated, classified Feed of
// Story records.
package newsparser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scraptool/corefetch/internal/crawler"
	"github.com/scraptool/corefetch/internal/extractor"
	"github.com/scraptool/corefetch/pkg/hashutil"
)

var (
	durationLinePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
	photoCreditPattern  = regexp.MustCompile(`^(Photo|Illustration):`)
	appMetadataPattern  = regexp.MustCompile(`(?i)^(download|get) the .* app`)
	analysisWordPattern = regexp.MustCompile(`(?i)analysis|deep dive|explainer`)
	properNounPattern   = regexp.MustCompile(`^([A-Z][a-z'.]+)(\s[A-Z][a-z'.]+){1,2}$`)
)

type compiledDatePattern struct {
	re       *regexp.Regexp
	layout   string
	relative bool
}

type compiledProfile struct {
	profile      SourceProfile
	datePatterns []compiledDatePattern
	anyDateRegex *regexp.Regexp
	location     *time.Location
}

func compileProfile(p SourceProfile) (compiledProfile, error) {
	cps := make([]compiledDatePattern, 0, len(p.DatePatterns))
	for _, dp := range p.DatePatterns {
		re, err := regexp.Compile(dp.Regex)
		if err != nil {
			return compiledProfile{}, err
		}
		cps = append(cps, compiledDatePattern{re: re, layout: dp.Layout, relative: dp.Relative})
	}
	anyRe, err := compileDateRegex(p.DatePatterns)
	if err != nil {
		return compiledProfile{}, err
	}
	loc, err := parseUTCOffset(p.UTCOffset)
	if err != nil {
		return compiledProfile{}, err
	}
	return compiledProfile{profile: p, datePatterns: cps, anyDateRegex: anyRe, location: loc}, nil
}

func parseUTCOffset(offset string) (*time.Location, error) {
	if offset == "" {
		return time.UTC, nil
	}
	sign := 1
	s := offset
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, err
	}
	minutes := 0
	if len(parts) > 1 {
		minutes, err = strconv.Atoi(parts[1])
		if err != nil {
			return nil, err
		}
	}
	seconds := sign * (hours*3600 + minutes*60)
	return time.FixedZone(offset, seconds), nil
}

func (cp compiledProfile) isDateAnchor(line string) bool {
	return cp.anyDateRegex.MatchString(strings.TrimSpace(line))
}

// parseDate attempts every date pattern in order, returning the resolved
// UTC time, whether the relative (less precise) form matched, and success.
func (cp compiledProfile) parseDate(line string, crawlTime time.Time) (time.Time, bool, bool) {
	trimmed := strings.TrimSpace(line)
	for _, dp := range cp.datePatterns {
		m := dp.re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		if dp.relative {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			var d time.Duration
			switch {
			case strings.HasPrefix(m[2], "minute"):
				d = time.Duration(n) * time.Minute
			case strings.HasPrefix(m[2], "hour"):
				d = time.Duration(n) * time.Hour
			case strings.HasPrefix(m[2], "day"):
				d = time.Duration(n) * 24 * time.Hour
			}
			return crawlTime.Add(-d).UTC(), true, true
		}
		t, err := time.ParseInLocation(dp.layout, trimmed, cp.location)
		if err != nil {
			continue
		}
		return t.UTC(), false, true
	}
	return time.Time{}, false, false
}

type draftStory struct {
	Story
	publishedTime *time.Time
}

// Parse runs the segment-classify-dedup pipeline over a CrawlResult's page
// text, producing a Feed of Story records.
func Parse(result crawler.CrawlResult, crawlTimeUTC time.Time, parserVersion, sourceProfileName string) (Feed, *ParseError) {
	if result.StartURL == "" || len(result.Pages) == 0 || crawlTimeUTC.IsZero() {
		return Feed{}, &ParseError{Message: "start_url, pages, and crawl_time_utc are required", Cause: ErrCauseCrawlInput}
	}

	profile, named := resolveProfile(sourceProfileName)
	cp, err := compileProfile(profile)
	if err != nil {
		return Feed{}, &ParseError{Message: err.Error(), Cause: ErrCauseSourceProfile}
	}

	var drafts []draftStory
	var warnings []string

	for _, page := range result.Pages {
		lines := strings.Split(page.Text, "\n")
		stripped, stripWarnings := noiseStrip(lines, cp)
		warnings = append(warnings, stripWarnings...)
		blocks := segment(stripped, cp)
		for _, block := range blocks {
			ds, storyWarnings, ok := buildStory(block, cp, page, crawlTimeUTC, named)
			warnings = append(warnings, storyWarnings...)
			if !ok {
				continue
			}
			drafts = append(drafts, ds)
		}
	}

	final, duplicatesRemoved := dedup(drafts)

	stories := make([]Story, 0, len(final))
	for _, ds := range final {
		ds.StoryID = computeStoryID(ds, parserVersion, profile.Name)
		stories = append(stories, ds.Story)
	}

	return Feed{
		Meta: FeedMeta{
			CrawlTimeUTC:      crawlTimeUTC,
			ParserVersion:     parserVersion,
			SourceProfile:     profile.Name,
			StoriesExtracted:  len(stories),
			DuplicatesRemoved: duplicatesRemoved,
			Warnings:          warnings,
		},
		Stories: stories,
	}, nil
}

// noiseStrip drops lines matching noise_markers, photo/illustration
// credits, standalone duration lines, and app-metadata lines, except when
// the line is adjacent to a date anchor — those are kept and flagged.
func noiseStrip(lines []string, cp compiledProfile) ([]string, []string) {
	var warnings []string
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		strip := containsExact(trimmed, cp.profile.NoiseMarkers) ||
			photoCreditPattern.MatchString(trimmed) ||
			durationLinePattern.MatchString(trimmed) ||
			appMetadataPattern.MatchString(trimmed)
		if !strip {
			out = append(out, line)
			continue
		}
		adjacent := (i > 0 && cp.isDateAnchor(lines[i-1])) || (i < len(lines)-1 && cp.isDateAnchor(lines[i+1]))
		if adjacent {
			warnings = append(warnings, "STRIP_RULE_SKIPPED_STORY_SAFETY")
			out = append(out, line)
			continue
		}
	}
	return out, warnings
}

// segment splits lines into story blocks at date anchors: each anchor line
// terminates the block it belongs to, which also carries every line since
// the previous anchor (the headline/subheadline lines that precede the
// story's own date line). Content before the first anchor stays in the
// first block; content after the last anchor belongs to no story and is
// discarded.
func segment(lines []string, cp compiledProfile) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range lines {
		current = append(current, line)
		if cp.isDateAnchor(line) {
			blocks = append(blocks, current)
			current = nil
		}
	}
	return blocks
}

// buildStory classifies one segmented block into a draftStory. The block's
// last line is always its date anchor.
func buildStory(block []string, cp compiledProfile, page extractor.PageContent, crawlTime time.Time, named bool) (draftStory, []string, bool) {
	if len(block) == 0 {
		return draftStory{}, nil, false
	}
	var warnings []string
	dateLine := block[len(block)-1]
	pre := filterNonEmpty(block[:len(block)-1])

	section := ""
	idx := 0
	for idx < len(pre) && containsExact(pre[idx], cp.profile.SectionLabels) {
		section = pre[idx]
		idx++
	}
	remaining := pre[idx:]

	headlineIdx := -1
	isOpinion := false
	for i, line := range remaining {
		if prefix, ok := pipePrefix(line); ok && containsExact(prefix, cp.profile.OpinionLabels) {
			headlineIdx = idx + i
			isOpinion = true
			break
		}
	}
	if headlineIdx == -1 && len(remaining) > 0 {
		headlineIdx = idx
	}

	headline := ""
	subheadline := ""
	if headlineIdx >= 0 {
		headline = pre[headlineIdx]
		for j := headlineIdx + 1; j < len(pre); j++ {
			if containsExact(pre[j], cp.profile.SectionLabels) {
				continue
			}
			subheadline = pre[j]
			break
		}
	}

	if headline == "" {
		warnings = append(warnings, "DEDUPLICATION_SKIPPED_NO_HEADLINE")
		return draftStory{}, warnings, false
	}

	durationBeforeHeadline := false
	for i := idx; i < headlineIdx; i++ {
		if durationLinePattern.MatchString(pre[i]) {
			durationBeforeHeadline = true
			break
		}
	}

	var author *string
	if isOpinion && headlineIdx > 0 {
		candidate := pre[headlineIdx-1]
		if properNounPattern.MatchString(candidate) {
			author = &candidate
		}
	}

	sponsored := scanMarkers(pre, cp.profile.SponsoredMarkers)
	exclusive := scanMarkers(pre, cp.profile.ExclusiveMarkers)

	contentType := ContentTypeNews
	switch {
	case sponsored:
		contentType = ContentTypeSponsored
	case isOpinion:
		contentType = ContentTypeOpinion
	case analysisWordPattern.MatchString(headline) || analysisWordPattern.MatchString(subheadline):
		contentType = ContentTypeAnalysis
	case durationBeforeHeadline:
		contentType = ContentTypeVideo
	}

	var tags []string
	if exclusive {
		tags = append(tags, TagExclusive)
	}

	publishedTime, usedRelative, parsedOK := cp.parseDate(dateLine, crawlTime)
	var publishedStr *string
	if parsedOK {
		s := publishedTime.Format(time.RFC3339)
		publishedStr = &s
	} else {
		warnings = append(warnings, "DATE_PARSE_FAILED")
	}

	confidence := 1.0
	if headline == "" {
		confidence -= 0.3
	}
	if section == "" {
		confidence -= 0.1
	}
	if !parsedOK {
		confidence -= 0.2
	}
	if subheadline == "" {
		confidence -= 0.05
	}
	if parsedOK && usedRelative {
		confidence -= 0.1
	}
	if !named {
		confidence -= 0.1
	}
	confidence = clamp01(confidence)

	story := Story{
		Section:      section,
		Headline:     headline,
		Subheadline:  subheadline,
		ContentType:  contentType,
		Tags:         tags,
		Author:       author,
		PublishedRaw: strings.TrimSpace(dateLine),
		Published:    publishedStr,
		BodySnippet:  subheadline,
		CrawlDepth:   page.Depth,
		SeenOnPages:  []string{page.URL},
		Confidence:   confidence,
		Warnings:     warnings,
	}

	var pt *time.Time
	if parsedOK {
		pt = &publishedTime
	}
	return draftStory{Story: story, publishedTime: pt}, warnings, true
}

func filterNonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}

func containsExact(line string, candidates []string) bool {
	trimmed := strings.TrimSpace(line)
	for _, c := range candidates {
		if trimmed == c {
			return true
		}
	}
	return false
}

func scanMarkers(lines []string, markers []string) bool {
	for _, l := range lines {
		if containsExact(l, markers) {
			return true
		}
	}
	return false
}

func pipePrefix(line string) (string, bool) {
	i := strings.Index(line, "|")
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(line[:i]), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// dedup merges stories sharing a key, keeping the shallowest crawl depth and
// tie-breaking on richness score.
func dedup(drafts []draftStory) ([]draftStory, int) {
	groups := make(map[string][]int)
	var order []string
	for i, ds := range drafts {
		key := dedupKey(ds)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	var merged []draftStory
	removed := 0
	for _, key := range order {
		indices := groups[key]
		winner := drafts[indices[0]]
		seenPages := append([]string{}, winner.SeenOnPages...)
		for _, i := range indices[1:] {
			candidate := drafts[i]
			seenPages = append(seenPages, candidate.SeenOnPages...)
			removed++
			if candidate.CrawlDepth < winner.CrawlDepth {
				winner = candidate
				continue
			}
			if candidate.CrawlDepth == winner.CrawlDepth && richness(candidate.Story) > richness(winner.Story) {
				winner = candidate
			}
		}
		winner.SeenOnPages = dedupStrings(seenPages)
		merged = append(merged, winner)
	}
	return merged, removed
}

func dedupKey(ds draftStory) string {
	norm := normalizeHeadline(ds.Headline)
	bucket := ""
	if ds.publishedTime != nil {
		bucket = ds.publishedTime.Format("2006-01-02")
	}
	if bucket != "" && ds.Section != "" {
		return norm + "|" + bucket + "|" + ds.Section
	}
	if bucket != "" {
		return norm + "|" + bucket
	}
	return norm
}

var nonWordPattern = regexp.MustCompile(`[^\w\s]`)
var whitespacePattern = regexp.MustCompile(`\s+`)

func normalizeHeadline(h string) string {
	lower := strings.ToLower(h)
	stripped := nonWordPattern.ReplaceAllString(lower, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(stripped, " "))
}

func richness(s Story) float64 {
	score := 0.0
	if s.Subheadline != "" {
		score++
	}
	if s.CommentCount != nil {
		score++
	}
	score += float64(len(s.BodySnippet)) / 1000
	score += float64(len(s.Tags))
	return score
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func computeStoryID(ds draftStory, parserVersion, profileName string) string {
	bucket := ""
	if ds.publishedTime != nil {
		bucket = ds.publishedTime.Format(time.RFC3339)
	}
	canonical := strings.Join([]string{
		parserVersion, profileName, ds.Section, ds.Headline, ds.ContentType, bucket,
		strconv.Itoa(ds.CrawlDepth),
	}, "\x1f")
	id, err := hashutil.HashBytes([]byte(canonical), hashutil.HashAlgoBLAKE3)
	if err != nil {
		return canonical
	}
	return id
}

