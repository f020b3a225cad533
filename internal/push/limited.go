package push

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited caps the send rate of the wrapped Sender. Callers wait for a
// token, bounded by their context.
type RateLimited struct {
	next    Sender
	limiter *rate.Limiter
}

// NewRateLimited returns next unchanged when perSecond is zero.
func NewRateLimited(next Sender, perSecond float64, burst int) Sender {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Send(ctx context.Context, msg Message) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return r.next.Send(ctx, msg)
}
