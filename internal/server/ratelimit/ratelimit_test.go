package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_TakeUntilEmpty(t *testing.T) {
	b := newBucket(10, 1.0)

	for i := 0; i < 10; i++ {
		ok, remaining, _ := b.take()
		assert.True(t, ok, "request %d", i+1)
		assert.Equal(t, 9-i, remaining)
	}

	ok, remaining, reset := b.take()
	assert.False(t, ok)
	assert.Equal(t, 0, remaining)
	assert.True(t, reset.After(time.Now()))
}

func TestBucket_Refill(t *testing.T) {
	b := newBucket(2, 10.0) // refills fast enough to test without long sleeps

	for i := 0; i < 2; i++ {
		ok, _, _ := b.take()
		require.True(t, ok)
	}
	ok, _, _ := b.take()
	require.False(t, ok)

	time.Sleep(150 * time.Millisecond)

	ok, _, _ = b.take()
	assert.True(t, ok, "token should have refilled")
}

func TestLimiter_DefaultBudget(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := l.Allow("127.0.0.1", "/test", "GET")
		assert.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/test", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Positive(t, info.RetryAfter)
}

func TestLimiter_Whitelist(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
	})
	defer l.Stop()

	for i := 0; i < 50; i++ {
		allowed, info := l.Allow("127.0.0.1", "/test", "GET")
		assert.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_Blacklist(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Blacklist:     map[string]bool{"192.168.1.1": true},
	})
	defer l.Stop()

	allowed, _ := l.Allow("192.168.1.1", "/test", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()

	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("127.0.0.1", "/test", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_RecommendBudget(t *testing.T) {
	l := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})
	defer l.Stop()

	// pipeline runs only get a burst of 3
	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("127.0.0.1", "/recommend", "POST")
		assert.True(t, allowed, "run %d", i+1)
		assert.Equal(t, 20, info.Limit)
	}
	allowed, _ := l.Allow("127.0.0.1", "/recommend", "POST")
	assert.False(t, allowed)

	// catalog reads stay on their own, much larger budget
	allowed, info := l.Allow("127.0.0.1", "/catalog", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 600, info.Limit)
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 100, DefaultWindow: time.Minute})
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := l.Allow("127.0.0.1", "/test", "GET"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowedCount)
}

func TestLimiter_SweepDropsIdleBuckets(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		clientID := fmt.Sprintf("127.0.0.%d", i+1)
		allowed, _ := l.Allow(clientID, "/test", "GET")
		require.True(t, allowed)
	}

	l.mu.Lock()
	assert.Len(t, l.buckets, 10)
	l.mu.Unlock()

	// a cutoff in the future makes every bucket idle
	l.sweep(time.Now().Add(time.Minute))

	l.mu.Lock()
	assert.Empty(t, l.buckets)
	l.mu.Unlock()
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()

	allowed, info := l.Allow("127.0.0.1", "/test", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		name      string
		path      string
		method    string
		wantPath  string
		unlimited bool
	}{
		{name: "recommend exact", path: "/recommend", method: "POST", wantPath: "/recommend"},
		{name: "stream exact", path: "/recommend/stream", method: "POST", wantPath: "/recommend/stream"},
		{name: "catalog entry by prefix", path: "/catalog/Entropy Weight Method", method: "GET", wantPath: "/catalog/"},
		{name: "health unlimited", path: "/health", method: "GET", unlimited: true},
		{name: "wrong method", path: "/recommend", method: "GET"},
		{name: "unknown path", path: "/nope", method: "POST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := matchEndpoint(tt.path, tt.method, configs)
			switch {
			case tt.unlimited:
				require.NotNil(t, ec)
				assert.LessOrEqual(t, ec.Limit, 0)
			case tt.wantPath != "":
				require.NotNil(t, ec)
				assert.Equal(t, tt.wantPath, ec.Path)
			default:
				assert.Nil(t, ec)
			}
		})
	}
}
