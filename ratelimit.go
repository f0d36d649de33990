package polytlai

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig configures a per-provider token bucket.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained request rate
	BurstSize         int // Bucket capacity (default: RequestsPerMinute)
}

// bucket is a token bucket refilled continuously at rate tokens per second.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	rate       float64
	lastRefill time.Time
}

func newBucket(cfg RateLimitConfig) *bucket {
	rpm := float64(cfg.RequestsPerMinute)
	if rpm <= 0 {
		rpm = 60
	}
	burst := float64(cfg.BurstSize)
	if burst <= 0 {
		burst = rpm
	}
	return &bucket{
		tokens:     burst,
		capacity:   burst,
		rate:       rpm / 60.0,
		lastRefill: time.Now(),
	}
}

// reserve takes a token if one is available, otherwise it reports how long
// until the next token.
func (b *bucket) reserve() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens += now.Sub(b.lastRefill).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	missing := 1 - b.tokens
	return false, time.Duration(missing / b.rate * float64(time.Second))
}

// Throttle holds one token bucket per rate-limited provider. Providers
// without a bucket are never delayed.
type Throttle struct {
	buckets map[ProviderID]*bucket
}

// NewThrottle builds buckets for the configured providers.
func NewThrottle(limits map[ProviderID]RateLimitConfig) *Throttle {
	t := &Throttle{buckets: make(map[ProviderID]*bucket, len(limits))}
	for id, cfg := range limits {
		t.buckets[id] = newBucket(cfg)
	}
	return t
}

// TryAcquire takes a token for id without blocking.
func (t *Throttle) TryAcquire(id ProviderID) bool {
	if t == nil {
		return true
	}
	b, ok := t.buckets[id]
	if !ok {
		return true
	}
	acquired, _ := b.reserve()
	return acquired
}

// Wait blocks until id may send a request or ctx is done.
func (t *Throttle) Wait(ctx context.Context, id ProviderID) error {
	if t == nil {
		return nil
	}
	b, ok := t.buckets[id]
	if !ok {
		return nil
	}
	for {
		acquired, wait := b.reserve()
		if acquired {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
