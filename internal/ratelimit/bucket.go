package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Bucket is a token bucket releasing one request per interval, burst 1
type Bucket struct {
	limiter *rate.Limiter
	backoff time.Duration
}

// NewBucket creates a token bucket limiter. The bucket starts empty, so the
// first Wait already spaces the first two requests.
func NewBucket(interval, backoff time.Duration) *Bucket {
	if interval <= 0 {
		interval = DefaultRequestInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	limiter.Allow()

	return &Bucket{
		limiter: limiter,
		backoff: backoff,
	}
}

func (b *Bucket) Wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (b *Bucket) Backoff(ctx context.Context) error {
	return sleep(ctx, b.backoff)
}
