package infra

import (
	"sync"
	"time"
)

// RateLimiter paces outbound venue requests with a token bucket: a
// burst allowance refilled at a steady rate. The Binance client takes
// a token before every order submission so bursts of strategy signals
// cannot trip the venue's request-weight limits. Safe for concurrent
// use.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // tokens per second
	last     time.Time
}

// NewRateLimiter allows bursts of up to maxRequests, refilled at
// perSecond tokens per second.
func NewRateLimiter(maxRequests int, perSecond float64) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(maxRequests),
		capacity: float64(maxRequests),
		rate:     perSecond,
		last:     time.Now(),
	}
}

// Wait takes a token, sleeping until one accrues if the bucket is
// empty.
func (r *RateLimiter) Wait() {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return
		}
		// Sleep for exactly the deficit, then re-check: another caller
		// may have taken the token that accrued.
		deficit := 1 - r.tokens
		r.mu.Unlock()
		time.Sleep(time.Duration(deficit / r.rate * float64(time.Second)))
	}
}

// TryAcquire takes a token if one is available, without blocking.
func (r *RateLimiter) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.refill()
	if r.tokens < 1 {
		return false
	}
	r.tokens--
	return true
}

// refill credits tokens for the time elapsed since the last call.
// Caller holds the mutex.
func (r *RateLimiter) refill() {
	now := time.Now()
	r.tokens += now.Sub(r.last).Seconds() * r.rate
	if r.tokens > r.capacity {
		r.tokens = r.capacity
	}
	r.last = now
}
