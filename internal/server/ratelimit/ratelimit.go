// Package ratelimit protects the recommendation endpoints with
// per-client token buckets. A single run fans out a dozen or more
// model calls, so the budgets here are counted in runs per hour, not
// requests per second.
package ratelimit

import (
	"sync"
	"time"
)

// bucket is a token bucket for one client+endpoint pair. Tokens refill
// continuously at rate tokens/sec up to capacity; lastSeen feeds the
// idle-bucket sweep.
type bucket struct {
	mu       sync.Mutex
	capacity float64
	rate     float64
	tokens   float64
	refilled time.Time
	lastSeen time.Time
}

func newBucket(capacity int, rate float64) *bucket {
	now := time.Now()
	return &bucket{
		capacity: float64(capacity),
		rate:     rate,
		tokens:   float64(capacity),
		refilled: now,
		lastSeen: now,
	}
}

// topUp credits tokens for the time elapsed since the last refill.
// Callers must hold b.mu.
func (b *bucket) topUp(now time.Time) {
	b.tokens += now.Sub(b.refilled).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.refilled = now
}

// take consumes one token if available and reports the remaining
// budget and the time at which the bucket is full again.
func (b *bucket) take() (ok bool, remaining int, reset time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.topUp(now)
	b.lastSeen = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		ok = true
	}

	reset = now
	if b.tokens < b.capacity {
		refillSeconds := (b.capacity - b.tokens) / b.rate
		reset = now.Add(time.Duration(refillSeconds * float64(time.Second)))
	}
	return ok, int(b.tokens), reset
}

func (b *bucket) idleSince(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen.Before(cutoff)
}

// Info describes the outcome of a rate limit check, used to populate
// the X-RateLimit response headers.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds limiter behavior. Whitelist entries bypass all budgets,
// blacklist entries are refused outright.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// Limiter tracks one bucket per client+endpoint+method and sweeps
// buckets idle for over an hour.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  *Config
	ticker  *time.Ticker
	stop    chan struct{}
}

// NewLimiter builds a limiter; a nil config enables a permissive
// default budget.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		config:  config,
	}

	if config.Enabled && config.CleanupInterval > 0 {
		l.ticker = time.NewTicker(config.CleanupInterval)
		l.stop = make(chan struct{})
		go l.sweepLoop()
	}
	return l
}

// Allow reports whether the client may issue this request and the
// budget state to advertise back to it.
func (l *Limiter) Allow(clientID, endpoint, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	ec := matchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if ec == nil {
		ec = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if ec.Limit <= 0 {
		// unlimited endpoint
		return true, Info{Allowed: true}
	}

	b := l.bucketFor(clientID+":"+endpoint+":"+method, ec)
	ok, remaining, reset := b.take()

	info := Info{
		Allowed:   ok,
		Limit:     ec.Limit,
		Remaining: remaining,
		ResetTime: reset,
	}
	if !ok {
		if retry := time.Until(reset); retry > 0 {
			info.RetryAfter = retry
		}
	}
	return ok, info
}

func (l *Limiter) bucketFor(key string, ec *EndpointConfig) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	capacity := ec.Burst
	if capacity <= 0 {
		capacity = ec.Limit
	}
	b := newBucket(capacity, float64(ec.Limit)/ec.Window.Seconds())
	l.buckets[key] = b
	return b
}

func (l *Limiter) sweepLoop() {
	for {
		select {
		case <-l.ticker.C:
			l.sweep(time.Now().Add(-time.Hour))
		case <-l.stop:
			return
		}
	}
}

// sweep drops buckets whose clients have gone quiet so the map does
// not grow without bound.
func (l *Limiter) sweep(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.idleSince(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop ends the background sweep.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
	if l.stop != nil {
		close(l.stop)
	}
}
