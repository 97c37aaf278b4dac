package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter paces outbound API calls to stay inside Polymarket's published
// per-endpoint limits. It wraps a token bucket with a burst of roughly one
// second's worth of requests.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a rate limiter allowing rps requests per second.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
