// Package ratelimit paces outbound calls to the external catalog.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Interval lets one call through immediately and then at most one call per
// interval. It is safe for concurrent use.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates a pacer with the given spacing. A non-positive interval
// disables pacing.
func NewInterval(interval time.Duration) *Interval {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Interval{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call is allowed or ctx is done.
func (p *Interval) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
