package worker

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused bucket is kept before eviction
const DefaultIdleTTL = 10 * time.Minute

// Limiter implements per-key rate limiting (one token bucket per reporter).
// Buckets idle for longer than the TTL are evicted, so arbitrary keys do not
// grow memory without bound.
type Limiter struct {
	buckets      *cache.Cache
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return NewLimiterWithTTL(requestsPerSecond, burst, DefaultIdleTTL)
}

// NewLimiterWithTTL creates a rate limiter whose idle buckets expire after idle
func NewLimiterWithTTL(requestsPerSecond float64, burst int, idle time.Duration) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	if idle <= 0 {
		idle = DefaultIdleTTL
	}

	r := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		r = rate.Inf
	}

	return &Limiter{
		buckets:      cache.New(idle, idle),
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Wait waits for rate limit clearance for the given key
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// Allow checks if a request is allowed without waiting
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// getLimiter returns the bucket for a key, refreshing its expiry
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.buckets.Get(key); ok {
		limiter := v.(*rate.Limiter)
		l.buckets.SetDefault(key, limiter)
		return limiter
	}

	limiter := rate.NewLimiter(l.defaultRate, l.defaultBurst)
	if err := l.buckets.Add(key, limiter, cache.DefaultExpiration); err != nil {
		// Lost the race to another caller
		if v, ok := l.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Len returns the number of live buckets
func (l *Limiter) Len() int {
	l.buckets.DeleteExpired()
	return l.buckets.ItemCount()
}
