package infrastructure

import (
	"sync"
	"time"
)

// MessageRateLimiter caps outbound automation sends per tenant instance
// using a token bucket.
type MessageRateLimiter struct {
	mu          sync.RWMutex
	buckets     map[int]*tokenBucket
	rate        float64 // tokens per second
	maxTokens   float64 // burst capacity
	cleanupTick time.Duration
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewMessageRateLimiter creates a limiter allowing rate sends per second
// with the given burst.
func NewMessageRateLimiter(rate float64, burst int) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		buckets:     make(map[int]*tokenBucket),
		rate:        rate,
		maxTokens:   float64(burst),
		cleanupTick: 5 * time.Minute,
	}

	go rl.cleanup()

	return rl
}

// Allow consumes one token for the tenant if available.
func (rl *MessageRateLimiter) Allow(userID int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, exists := rl.buckets[userID]
	now := time.Now()

	if !exists {
		rl.buckets[userID] = &tokenBucket{
			tokens:     rl.maxTokens - 1,
			lastUpdate: now,
		}
		return true
	}

	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * rl.rate
	if bucket.tokens > rl.maxTokens {
		bucket.tokens = rl.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= 1 {
		bucket.tokens -= 1
		return true
	}

	return false
}

// WaitTime returns how long until the tenant's next send is allowed.
func (rl *MessageRateLimiter) WaitTime(userID int) time.Duration {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	bucket, exists := rl.buckets[userID]
	if !exists {
		return 0
	}

	now := time.Now()
	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	currentTokens := bucket.tokens + elapsed*rl.rate

	if currentTokens >= 1 {
		return 0
	}

	needed := 1 - currentTokens
	waitSeconds := needed / rl.rate
	return time.Duration(waitSeconds * float64(time.Second))
}

// Reset removes rate limit state for a tenant.
func (rl *MessageRateLimiter) Reset(userID int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, userID)
}

// cleanup removes stale buckets periodically
func (rl *MessageRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for userID, bucket := range rl.buckets {
			if now.Sub(bucket.lastUpdate) > 10*time.Minute {
				delete(rl.buckets, userID)
			}
		}
		rl.mu.Unlock()
	}
}
