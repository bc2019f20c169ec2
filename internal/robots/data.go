package robots

import (
	"net/url"
	"time"
)

// Decision is the outcome of a single Allowed query.
type Decision struct {
	URL        url.URL
	Allowed    bool
	Reason     string
	CrawlDelay time.Duration
}

const (
	ReasonAllowedByRobots    = "allowed_by_robots"
	ReasonDisallowedByRobots = "disallowed_by_robots"
	ReasonRobotsDisabled     = "robots_disabled"
	ReasonFetchFailedOpen    = "robots_fetch_failed_open"
)
