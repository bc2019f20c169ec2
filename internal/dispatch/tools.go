package dispatch

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/scraptool/corefetch/internal/antidetect"
	"github.com/scraptool/corefetch/internal/crawler"
	"github.com/scraptool/corefetch/internal/fetcher"
	"github.com/scraptool/corefetch/internal/newsparser"
	"github.com/scraptool/corefetch/internal/session"
	"github.com/scraptool/corefetch/internal/toolerr"
)

func handlePing(_ context.Context, d *Dispatcher, _ map[string]interface{}, _ []string, _ *string) (map[string]interface{}, *toolerr.ToolError) {
	return map[string]interface{}{"status": "ok", "service": d.ServiceName}, nil
}

func handleSetAntidetection(_ context.Context, d *Dispatcher, args map[string]interface{}, _ []string, _ *string) (map[string]interface{}, *toolerr.ToolError) {
	profile, terr := requireString(args, "profile")
	if terr != nil {
		return nil, terr
	}
	customHeaders, terr := optStringMap(args, "custom_headers")
	if terr != nil {
		return nil, terr
	}
	customUserAgent := optString(args, "custom_user_agent", "")
	rateLimitDelay, terr := optFloatPtr(args, "rate_limit_delay")
	if terr != nil {
		return nil, terr
	}
	maxResponseChars, terr := optIntPtr(args, "max_response_chars")
	if terr != nil {
		return nil, terr
	}

	if err := d.profiles.Set(profile, customHeaders, customUserAgent, rateLimitDelay, maxResponseChars); err != nil {
		switch err.(type) {
		case *antidetect.InvalidProfileError:
			return nil, toolerr.New(toolerr.CodeInvalidProfile, err.Error(), map[string]string{"profile": profile})
		case *antidetect.InvalidRateLimitError:
			return nil, toolerr.New(toolerr.CodeInvalidRateLimit, err.Error(), nil)
		case *antidetect.InvalidMaxResponseCharsError:
			return nil, toolerr.New(toolerr.CodeInvalidMaxResponseChars, err.Error(), nil)
		default:
			return nil, toolerr.New(toolerr.CodeInternalError, err.Error(), nil)
		}
	}

	if respectRobots, ok := args["respect_robots_txt"]; ok {
		b, ok := respectRobots.(bool)
		if !ok {
			return nil, invalidArg("respect_robots_txt", "respect_robots_txt must be a boolean")
		}
		d.profiles.SetRespectRobots(b)
	}

	return map[string]interface{}{
		"profile":            d.profiles.ActiveProfileName(),
		"rate_limit_delay":   d.profiles.RateLimitDelay(),
		"max_response_chars": d.profiles.MaxResponseChars(),
	}, nil
}

func handleGetContent(ctx context.Context, d *Dispatcher, args map[string]interface{}, groups []string, primaryGroup *string) (map[string]interface{}, *toolerr.ToolError) {
	target, terr := requireString(args, "url")
	if terr != nil {
		return nil, terr
	}
	selector := optString(args, "selector", "")
	depth, terr := optInt(args, "depth", crawler.MinDepth)
	if terr != nil {
		return nil, terr
	}
	maxPagesPerLevel, terr := optInt(args, "max_pages_per_level", crawler.DefaultMaxPagesPerLevel)
	if terr != nil {
		return nil, terr
	}
	wantSession, terr := optBool(args, "session", false)
	if terr != nil {
		return nil, terr
	}
	parseResults, terr := optBool(args, "parse_results", true)
	if terr != nil {
		return nil, terr
	}
	sourceProfileName := optString(args, "source_profile_name", "")
	timeoutSeconds, terr := optInt(args, "timeout_seconds", fetcher.DefaultTimeoutSeconds)
	if terr != nil {
		return nil, terr
	}

	snap := d.profiles.Snapshot()
	result, cerr := d.crawler.Crawl(ctx, crawler.CrawlRequest{
		StartURL:         target,
		Depth:            depth,
		MaxPagesPerLevel: maxPagesPerLevel,
		Selector:         selector,
		Profile:          d.profiles.ActiveProfileName(),
		RespectRobots:    snap.RespectRobots,
		TimeoutSeconds:   timeoutSeconds,
	})
	if cerr != nil {
		return nil, classify(cerr, map[string]string{"url": target})
	}

	var feed newsparser.Feed
	if parseResults {
		var perr *newsparser.ParseError
		feed, perr = newsparser.Parse(result, time.Now().UTC(), ParserVersion, sourceProfileName)
		if perr != nil {
			return nil, classify(perr, map[string]string{"url": target})
		}
	}

	if depth > 1 || wantSession {
		var contentType string
		var payload interface{}
		if parseResults {
			contentType = session.ContentTypeParsedFeed
			payload = feed
		} else {
			contentType = session.ContentTypeRawCrawl
			payload = result
		}
		content, merr := marshalPayload(payload)
		if merr != nil {
			return nil, merr
		}
		id, serr := d.sessions.Create(content, target, primaryGroup, 0, contentType)
		if serr != nil {
			return nil, classify(serr, nil)
		}
		rec, serr := d.sessions.Info(id, groups)
		if serr != nil {
			return nil, classify(serr, nil)
		}
		return map[string]interface{}{
			"response_type": "session",
			"session_id":    id,
			"total_chunks":  rec.TotalChunks,
			"total_pages":   len(result.Pages),
			"url":           target,
		}, nil
	}

	if parseResults {
		return toMap(feed)
	}
	if len(result.Pages) == 0 {
		return nil, toolerr.New(toolerr.CodeFetchError, "no pages were successfully fetched", map[string]string{"url": target})
	}
	return toMap(result.Pages[0])
}

func marshalPayload(payload interface{}) ([]byte, *toolerr.ToolError) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, toolerr.New(toolerr.CodeInternalError, err.Error(), nil)
	}
	return raw, nil
}

func handleGetStructure(ctx context.Context, d *Dispatcher, args map[string]interface{}, _ []string, _ *string) (map[string]interface{}, *toolerr.ToolError) {
	target, terr := requireString(args, "url")
	if terr != nil {
		return nil, terr
	}
	selector := optString(args, "selector", "")
	timeoutSeconds, terr := optInt(args, "timeout_seconds", fetcher.DefaultTimeoutSeconds)
	if terr != nil {
		return nil, terr
	}

	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, toolerr.New(toolerr.CodeInvalidURL, "url must be an absolute http(s) URL", map[string]string{"field": "url"})
	}

	snap := d.profiles.Snapshot()
	fres, ferr := d.fetcher.Fetch(ctx, fetcher.FetchRequest{
		URL:           *parsed,
		Profile:       d.profiles.ActiveProfileName(),
		Selector:      selector,
		TimeoutSecond: timeoutSeconds,
		RespectRobots: snap.RespectRobots,
	})
	if ferr != nil {
		return nil, classify(ferr, map[string]string{"url": target})
	}

	structureResult, aerr := d.analyzer.Analyze(fres.FinalURL, fres.ContentBytes, selector)
	if aerr != nil {
		return nil, classify(aerr, map[string]string{"url": target})
	}
	return toMap(structureResult)
}

func handleGetSessionInfo(_ context.Context, d *Dispatcher, args map[string]interface{}, groups []string, _ *string) (map[string]interface{}, *toolerr.ToolError) {
	id, terr := requireString(args, "session_id")
	if terr != nil {
		return nil, terr
	}
	rec, serr := d.sessions.Info(id, groups)
	if serr != nil {
		return nil, classify(serr, map[string]string{"session_id": id})
	}
	return toMap(rec)
}

func handleGetSessionChunk(_ context.Context, d *Dispatcher, args map[string]interface{}, groups []string, _ *string) (map[string]interface{}, *toolerr.ToolError) {
	id, terr := requireString(args, "session_id")
	if terr != nil {
		return nil, terr
	}
	idx, terr := requireInt(args, "chunk_index")
	if terr != nil {
		return nil, terr
	}
	content, serr := d.sessions.Chunk(id, idx, groups)
	if serr != nil {
		return nil, classify(serr, map[string]string{"session_id": id})
	}
	rec, serr := d.sessions.Info(id, groups)
	if serr != nil {
		return nil, classify(serr, map[string]string{"session_id": id})
	}
	return map[string]interface{}{
		"session_id":   id,
		"chunk_index":  idx,
		"total_chunks": rec.TotalChunks,
		"content":      string(content),
	}, nil
}

func handleListSessions(_ context.Context, d *Dispatcher, _ map[string]interface{}, groups []string, _ *string) (map[string]interface{}, *toolerr.ToolError) {
	recs := d.sessions.List(groups)
	summaries := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		m, terr := toMap(rec)
		if terr != nil {
			return nil, terr
		}
		summaries = append(summaries, m)
	}
	return map[string]interface{}{"sessions": summaries}, nil
}

func handleGetSessionUrls(_ context.Context, d *Dispatcher, args map[string]interface{}, groups []string, _ *string) (map[string]interface{}, *toolerr.ToolError) {
	id, terr := requireString(args, "session_id")
	if terr != nil {
		return nil, terr
	}
	asJSON, terr := optBool(args, "as_json", true)
	if terr != nil {
		return nil, terr
	}
	baseURL := optString(args, "base_url", "")

	urls, serr := d.sessions.Urls(id, groups, baseURL)
	if serr != nil {
		return nil, classify(serr, map[string]string{"session_id": id})
	}

	if baseURL != "" {
		chunkURLs := make([]string, 0, len(urls))
		for _, u := range urls {
			chunkURLs = append(chunkURLs, u.URL)
		}
		return map[string]interface{}{"chunk_urls": chunkURLs}, nil
	}

	chunks := make([]interface{}, 0, len(urls))
	for _, u := range urls {
		if asJSON {
			m, terr := toMap(u)
			if terr != nil {
				return nil, terr
			}
			chunks = append(chunks, m)
		} else {
			chunks = append(chunks, u.ChunkIndex)
		}
	}
	return map[string]interface{}{"chunks": chunks}, nil
}

const defaultGetSessionMaxBytes = 5_242_880

func handleGetSession(_ context.Context, d *Dispatcher, args map[string]interface{}, groups []string, _ *string) (map[string]interface{}, *toolerr.ToolError) {
	id, terr := requireString(args, "session_id")
	if terr != nil {
		return nil, terr
	}
	maxBytes, terr := optInt64(args, "max_bytes", defaultGetSessionMaxBytes)
	if terr != nil {
		return nil, terr
	}

	content, serr := d.sessions.GetFull(id, groups, maxBytes)
	if serr != nil {
		return nil, classify(serr, map[string]string{"session_id": id})
	}
	rec, serr := d.sessions.Info(id, groups)
	if serr != nil {
		return nil, classify(serr, map[string]string{"session_id": id})
	}

	return map[string]interface{}{
		"session_id":       id,
		"content_type":     rec.ContentType,
		"total_size_bytes": rec.TotalSizeBytes,
		"content":          string(content),
	}, nil
}
