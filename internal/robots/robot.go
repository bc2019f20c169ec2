// Package robots implements a robots.txt cache: per-host fetch, parse, TTL
// cache, and the allow/deny query the fetcher consults before every
// request. Grammar parsing is delegated to temoto/robotstxt (the standard
// User-agent/Allow/Disallow/Crawl-delay/wildcard grammar) rather than a
// hand-rolled scanner.
package robots

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/scraptool/corefetch/internal/obslog"
	"github.com/scraptool/corefetch/internal/robots/cache"
)

const defaultTTL = time.Hour

// Checker fetches robots.txt per host, parses it, caches the ruleset for a
// TTL, and answers allow/deny queries.
type Checker struct {
	httpClient *http.Client
	userAgent  string
	cache      *cache.RobotsCache
	logger     *obslog.Logger

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

// NewChecker builds a Checker with a default TTL of one hour.
func NewChecker(userAgent string, logger *obslog.Logger) *Checker {
	return &Checker{
		httpClient: newHTTPClient(10 * time.Second),
		userAgent:  userAgent,
		cache:      cache.New(defaultTTL),
		logger:     logger,
		inflight:   make(map[string]chan struct{}),
	}
}

// Allowed answers whether target may be fetched. When respectRobots is
// false, always allows. Fail-open on fetch/parse failure.
func (c *Checker) Allowed(ctx context.Context, target url.URL, respectRobots bool) Decision {
	if !respectRobots {
		return Decision{URL: target, Allowed: true, Reason: ReasonRobotsDisabled}
	}

	data, err := c.rulesetFor(ctx, target.Scheme, target.Host)
	if err != nil {
		if c.logger != nil {
			c.logger.RecordEvent(ctx, "warn", "robots_fetch_failed", map[string]string{
				"host": target.Host, "cause": err.Error(),
			})
		}
		return Decision{URL: target, Allowed: true, Reason: ReasonFetchFailedOpen}
	}

	group := data.FindGroup(c.userAgent)
	allowed := group.Test(target.Path)
	reason := ReasonDisallowedByRobots
	if allowed {
		reason = ReasonAllowedByRobots
	}

	var crawlDelay time.Duration
	if group.CrawlDelay > 0 {
		crawlDelay = group.CrawlDelay
	}

	return Decision{URL: target, Allowed: allowed, Reason: reason, CrawlDelay: crawlDelay}
}

// rulesetFor returns the cached ruleset for host, fetching and parsing it
// exactly once even under concurrent callers: the in-flight map ensures at
// most one outstanding robots.txt fetch per host (testable property 2).
func (c *Checker) rulesetFor(ctx context.Context, scheme, host string) (*robotstxt.RobotsData, error) {
	key := scheme + "://" + host

	if cached, ok := c.cache.Get(key); ok {
		return cached.(*robotstxt.RobotsData), nil
	}

	c.mu.Lock()
	// A fetch that finished between the cache check above and this lock
	// has already populated the cache and left the in-flight map.
	if cached, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return cached.(*robotstxt.RobotsData), nil
	}
	if wait, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if cached, ok := c.cache.Get(key); ok {
			return cached.(*robotstxt.RobotsData), nil
		}
		return nil, &RobotsError{Message: "fetch by another caller did not populate cache", Retryable: true, Cause: ErrCauseFetchFailure}
	}
	done := make(chan struct{})
	c.inflight[key] = done
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
		close(done)
	}()

	data, err := fetchRobotsTxt(ctx, c.httpClient, c.userAgent, scheme, host)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, data)
	return data, nil
}
