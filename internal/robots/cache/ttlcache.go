// Package cache is the TTL-bounded store robots.txt rulesets live in
// between fetches. It wraps patrickmn/go-cache rather than a hand-rolled
// map+mutex+expiry loop, since this is exactly the TTL key-value idiom
// that library exists for.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// RobotsCache stores one parsed ruleset per host for a bounded TTL.
type RobotsCache struct {
	c *gocache.Cache
}

// New builds a cache with the given default TTL (one hour by default) and
// a cleanup sweep at twice that interval.
func New(ttl time.Duration) *RobotsCache {
	return &RobotsCache{c: gocache.New(ttl, ttl*2)}
}

// Get returns the cached value for key, if present and unexpired.
func (r *RobotsCache) Get(key string) (any, bool) {
	return r.c.Get(key)
}

// Put stores value under key using the cache's default TTL.
func (r *RobotsCache) Put(key string, value any) {
	r.c.SetDefault(key, value)
}
