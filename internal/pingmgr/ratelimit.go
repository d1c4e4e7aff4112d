package pingmgr

import (
	"sync"
	"time"
)

// tokenBucket throttles application-initiated Create calls. It is the same
// shape as the host agent's inbound-signaling token bucket, collapsed to a
// single bucket since a Ping Manager only ever has one caller population
// (whichever goroutine calls Session.Ping) to guard rather than one bucket
// per message type.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

func newTokenBucket(maxBurst int, refillRate time.Duration) *tokenBucket {
	return &tokenBucket{
		tokens:     maxBurst,
		maxTokens:  maxBurst,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// allow reports whether a Create call may proceed right now. Denied calls
// should be retried by the caller, not silently dropped — unlike the
// inbound-signaling bucket this guards an outbound action the caller is
// waiting on.
func (b *tokenBucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed >= b.refillRate && b.tokens < b.maxTokens {
		tokensToAdd := int(elapsed / b.refillRate)
		b.tokens += tokensToAdd
		if b.tokens > b.maxTokens {
			b.tokens = b.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}
