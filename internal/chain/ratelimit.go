package chain

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles calls per RPC endpoint with a token bucket.
// Public Solana endpoints answer bursts with HTTP 429, so every client shares one.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perSec   rate.Limit
	burst    int
}

// NewRateLimiter creates a limiter allowing ratePerSecond sustained calls and
// burst calls at once, per endpoint.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(ratePerSecond),
		burst:    burst,
	}
}

// DefaultRateLimiter allows 4 calls/second with a burst of 8, which stays
// under the public devnet and mainnet limits.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(4, 8)
}

// Allow reports whether a call to endpoint may proceed now.
func (r *RateLimiter) Allow(endpoint string) bool {
	return r.limiter(endpoint).Allow()
}

// Wait blocks until a call to endpoint may proceed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	return r.limiter(endpoint).Wait(ctx)
}

func (r *RateLimiter) limiter(endpoint string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[endpoint]
	if !ok {
		l = rate.NewLimiter(r.perSec, r.burst)
		r.limiters[endpoint] = l
	}
	return l
}
