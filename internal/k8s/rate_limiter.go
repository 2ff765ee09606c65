package k8s

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles Kubernetes API reads
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows rps reads per second with a burst of 2*rps.
// rps <= 0 means unlimited.
func NewRateLimiter(rps int) *RateLimiter {
	limit, burst := rate.Inf, 0
	if rps > 0 {
		limit, burst = rate.Limit(rps), 2*rps
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a read is allowed or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow reports whether a read may proceed now
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
