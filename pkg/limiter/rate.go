// Package limiter implements a per-host rate gate: callers awaiting the
// same host are serialized in FIFO order and each wait is held until
// now - last_dispatch[host] >= effective_delay(host), where effective_delay
// is the larger of the configured rate limit and the host's robots.txt
// Crawl-delay. Retry backoff lives in the fetcher instead, where it
// belongs to a single request rather than to host-wide pacing.
package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/scraptool/corefetch/pkg/timeutil"
)

// RateLimiter is the per-host admission gate the fetcher consults before
// every request.
type RateLimiter interface {
	// Await blocks the caller until the host's effective delay has
	// elapsed since its last recorded dispatch, then records now as the
	// new last-dispatch time. Returns the duration actually waited.
	Await(ctx context.Context, host string) time.Duration
	// SetCrawlDelay records a robots.txt Crawl-delay for host, used by
	// effective_delay's max() rule.
	SetCrawlDelay(host string, delay time.Duration)
	// SetConfiguredDelay sets the base rate_limit_delay applied to every
	// host, mutable at runtime via set_antidetection.
	SetConfiguredDelay(delay time.Duration)
}

// ConcurrentRateLimiter serializes awaits per host via a per-host mutex so
// that different hosts proceed fully in parallel while same-host callers
// queue in FIFO order.
type ConcurrentRateLimiter struct {
	mu              sync.Mutex
	configuredDelay time.Duration
	hostTimings     map[string]hostTiming
	hostLocks       map[string]*sync.Mutex
	sleeper         timeutil.Sleeper
}

// NewConcurrentRateLimiter builds a limiter with the given base delay.
func NewConcurrentRateLimiter(configuredDelay time.Duration) *ConcurrentRateLimiter {
	return &ConcurrentRateLimiter{
		configuredDelay: configuredDelay,
		hostTimings:     make(map[string]hostTiming),
		hostLocks:       make(map[string]*sync.Mutex),
		sleeper:         timeutil.NewRealSleeper(),
	}
}

// WithSleeper overrides the sleep implementation, for deterministic tests.
func (r *ConcurrentRateLimiter) WithSleeper(s timeutil.Sleeper) *ConcurrentRateLimiter {
	r.sleeper = s
	return r
}

func (r *ConcurrentRateLimiter) lockFor(host string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.hostLocks[host]
	if !ok {
		l = &sync.Mutex{}
		r.hostLocks[host] = l
	}
	return l
}

func (r *ConcurrentRateLimiter) SetConfiguredDelay(delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configuredDelay = delay
}

func (r *ConcurrentRateLimiter) SetCrawlDelay(host string, delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.hostTimings[host]
	t.crawlDelay = delay
	r.hostTimings[host] = t
}

// effectiveDelay = max(configured, crawl-delay).
func (r *ConcurrentRateLimiter) effectiveDelay(host string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return timeutil.MaxDuration([]time.Duration{r.configuredDelay, r.hostTimings[host].crawlDelay})
}

func (r *ConcurrentRateLimiter) lastFetchAt(host string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostTimings[host].lastFetchAt
}

func (r *ConcurrentRateLimiter) markDispatched(host string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.hostTimings[host]
	t.lastFetchAt = at
	r.hostTimings[host] = t
}

// Await serializes entry per host (so FIFO order of Await calls is
// preserved for that host) and blocks until effective_delay has elapsed
// since the host's last dispatch.
func (r *ConcurrentRateLimiter) Await(ctx context.Context, host string) time.Duration {
	hostLock := r.lockFor(host)
	hostLock.Lock()
	defer hostLock.Unlock()

	delay := r.effectiveDelay(host)
	last := r.lastFetchAt(host)

	var waited time.Duration
	if !last.IsZero() {
		elapsed := time.Since(last)
		if elapsed < delay {
			waited = delay - elapsed
			select {
			case <-ctx.Done():
				waited = 0
			default:
				r.sleeper.Sleep(waited)
			}
		}
	}

	r.markDispatched(host, time.Now())
	return waited
}
