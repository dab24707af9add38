// Package ratelimiter throttles operator-triggered operations such as manual
// sweeps.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket: one token every interval, up to burst
// tokens banked. Wraps golang.org/x/time/rate.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter that admits one event per every, with burst capacity.
//
// Special cases:
//   - every <= 0: no limiting
//   - burst < 1: treated as 1
func New(every time.Duration, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if every > 0 {
		limit = rate.Every(every)
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Allow reports whether an event may happen now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// RetryAfter returns how long a caller must wait for the next token, without
// consuming it. Zero means an event would be allowed now.
func (r *RateLimiter) RetryAfter() time.Duration {
	now := time.Now()
	res := r.limiter.ReserveN(now, 1)
	if !res.OK() {
		return 0
	}
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	return delay
}

// SetInterval changes the refill interval. every <= 0 removes the limit.
func (r *RateLimiter) SetInterval(every time.Duration) {
	if every <= 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Every(every))
}

// Tokens returns the currently available tokens. Useful for debugging only;
// the value may change immediately.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
