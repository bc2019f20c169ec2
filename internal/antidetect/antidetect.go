// Package antidetect holds the anti-detection profile registry: named
// bundles of headers, user-agent, and a TLS fingerprint hint, plus the
// process-wide current profile the dispatcher owns and mutates under a
// lock via set_antidetection. Current is an explicit configuration object
// passed into fetcher calls rather than read off package-level globals.
package antidetect

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// TLSMode hints at the fetcher's transport layer which TLS stack to use.
// The core never implements TLS fingerprinting itself — that's an
// external collaborator's job; this is advisory metadata a pluggable
// Fetcher may act on.
type TLSMode string

const (
	TLSModeStandard        TLSMode = "standard"
	TLSModeBrowserEmulation TLSMode = "browser_emulation"
)

// Profile is an immutable value record describing one named bundle.
type Profile struct {
	Name             string
	Headers          map[string]string
	UserAgent        string
	UserAgentRotation []string
	TLSMode          TLSMode
	DefaultRateDelay time.Duration
}

var stealthUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

func defaultHeaders() map[string]string {
	return map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
}

// registry returns a fresh copy of the required built-in profiles:
// balanced, stealth, browser_tls, none, custom.
func registry() map[string]Profile {
	return map[string]Profile{
		"balanced": {
			Name:             "balanced",
			Headers:          defaultHeaders(),
			UserAgent:        "corefetch/1.0 (+https://example.invalid/bot)",
			TLSMode:          TLSModeStandard,
			DefaultRateDelay: 1 * time.Second,
		},
		"stealth": {
			Name:              "stealth",
			Headers:           defaultHeaders(),
			UserAgentRotation: stealthUserAgents,
			UserAgent:         stealthUserAgents[0],
			TLSMode:           TLSModeBrowserEmulation,
			DefaultRateDelay:  2 * time.Second,
		},
		"browser_tls": {
			Name:             "browser_tls",
			Headers:          defaultHeaders(),
			UserAgent:        stealthUserAgents[0],
			TLSMode:          TLSModeBrowserEmulation,
			DefaultRateDelay: 1 * time.Second,
		},
		"none": {
			Name:             "none",
			Headers:          map[string]string{},
			UserAgent:        "corefetch/1.0",
			TLSMode:          TLSModeStandard,
			DefaultRateDelay: 0,
		},
		"custom": {
			Name:             "custom",
			Headers:          map[string]string{},
			UserAgent:        "corefetch/1.0",
			TLSMode:          TLSModeStandard,
			DefaultRateDelay: 1 * time.Second,
		},
	}
}

const (
	minRateLimitDelay  = 0.1
	maxRateLimitDelay  = 60.0
	minMaxRespChars    = 1000
	maxMaxRespChars    = 1_000_000
)

// InvalidProfileError/InvalidRateLimitError/InvalidMaxResponseCharsError are
// the typed errors set_antidetection can raise; internal/toolerr maps them
// to CodeInvalidProfile / CodeInvalidRateLimit / CodeInvalidMaxResponseChars.
type InvalidProfileError struct{ Name string }

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("antidetect: unknown profile %q", e.Name)
}

type InvalidRateLimitError struct{ Value float64 }

func (e *InvalidRateLimitError) Error() string {
	return fmt.Sprintf("antidetect: rate_limit_delay %v out of range [%v,%v]", e.Value, minRateLimitDelay, maxRateLimitDelay)
}

type InvalidMaxResponseCharsError struct{ Value int }

func (e *InvalidMaxResponseCharsError) Error() string {
	return fmt.Sprintf("antidetect: max_response_chars %v out of range [%v,%v]", e.Value, minMaxRespChars, maxMaxRespChars)
}

// Current is the process-wide current profile plus the two scalar settings
// set_antidetection is allowed to mutate. The dispatcher owns the single
// instance; fetcher calls receive a Snapshot explicitly rather than reading
// global state.
type Current struct {
	mu              sync.RWMutex
	profiles        map[string]Profile
	activeName      string
	customHeaders   map[string]string
	customUserAgent string
	rateLimitDelay  float64
	maxResponseChars int
	respectRobots   bool
	rotationIndex   int
	rng             *rand.Rand
}

// NewCurrent builds the process-wide profile state starting from "balanced".
func NewCurrent() *Current {
	return &Current{
		profiles:         registry(),
		activeName:       "balanced",
		rateLimitDelay:   1.0,
		maxResponseChars: 50_000,
		respectRobots:    true,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Snapshot is the immutable view the fetcher consumes for a single request.
type Snapshot struct {
	Profile          Profile
	RateLimitDelay   time.Duration
	MaxResponseChars int
	RespectRobots    bool
}

// Set validates and applies a set_antidetection call.
func (c *Current) Set(profileName string, customHeaders map[string]string, customUserAgent string, rateLimitDelay *float64, maxResponseChars *int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.profiles[profileName]; !ok {
		return &InvalidProfileError{Name: profileName}
	}
	if rateLimitDelay != nil {
		if *rateLimitDelay < minRateLimitDelay || *rateLimitDelay > maxRateLimitDelay {
			return &InvalidRateLimitError{Value: *rateLimitDelay}
		}
	}
	if maxResponseChars != nil {
		if *maxResponseChars < minMaxRespChars || *maxResponseChars > maxMaxRespChars {
			return &InvalidMaxResponseCharsError{Value: *maxResponseChars}
		}
	}

	c.activeName = profileName
	c.customHeaders = customHeaders
	c.customUserAgent = customUserAgent
	if rateLimitDelay != nil {
		c.rateLimitDelay = *rateLimitDelay
	}
	if maxResponseChars != nil {
		c.maxResponseChars = *maxResponseChars
	}
	return nil
}

// SetRespectRobots toggles robots enforcement, exposed separately since
// set_antidetection(respect_robots_txt=...) drives it independently of
// any named profile.
func (c *Current) SetRespectRobots(respect bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.respectRobots = respect
}

// Snapshot returns the current state for a single fetch call, rotating the
// stealth profile's user-agent on each call.
func (c *Current) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	profile := c.profiles[c.activeName]
	if c.activeName == "custom" {
		if len(c.customHeaders) > 0 {
			profile.Headers = c.customHeaders
		}
		if c.customUserAgent != "" {
			profile.UserAgent = c.customUserAgent
		}
	}
	if len(profile.UserAgentRotation) > 0 {
		profile.UserAgent = profile.UserAgentRotation[c.rotationIndex%len(profile.UserAgentRotation)]
		c.rotationIndex++
	}

	return Snapshot{
		Profile:          profile,
		RateLimitDelay:   time.Duration(c.rateLimitDelay * float64(time.Second)),
		MaxResponseChars: c.maxResponseChars,
		RespectRobots:    c.respectRobots,
	}
}

// ActiveProfileName reports the currently selected profile name.
func (c *Current) ActiveProfileName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeName
}

// RateLimitDelay reports the current rate_limit_delay in seconds.
func (c *Current) RateLimitDelay() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rateLimitDelay
}

// MaxResponseChars reports the current max_response_chars.
func (c *Current) MaxResponseChars() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxResponseChars
}
