package delivery

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket algorithm for rate limiting.
// It keeps a burst of flushes (for example several critical events in a row)
// from hammering the analytics endpoint.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a new RateLimiter with the specified rate and burst capacity.
//
// Example:
//
//	limiter := NewRateLimiter(2.0, 5)  // 2 batches/s with burst of 5
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Allow blocks until a token is available or the context is canceled.
func (r *RateLimiter) Allow(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens reports the tokens currently available.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
