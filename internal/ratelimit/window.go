package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	// Dev key limits are 20/s and 100/2min; stay a little under both
	DevKeyShortLimit = 15
	DevKeyLongLimit  = 90

	windowSlack = 100 * time.Millisecond
)

// Window enforces two sliding windows at once (per second and per two
// minutes, the shape of Riot's application rate limits)
type Window struct {
	mu          sync.Mutex
	shortLimit  int
	shortPeriod time.Duration
	longLimit   int
	longPeriod  time.Duration
	shortWindow []time.Time // Requests in the short period
	longWindow  []time.Time // Requests in the long period

	backoff time.Duration
	now     func() time.Time
}

// NewWindow creates a dual sliding window limiter
func NewWindow(shortLimit int, shortPeriod time.Duration, longLimit int, longPeriod, backoff time.Duration) *Window {
	if shortLimit <= 0 {
		shortLimit = DevKeyShortLimit
	}
	if shortPeriod <= 0 {
		shortPeriod = time.Second
	}
	if longLimit <= 0 {
		longLimit = DevKeyLongLimit
	}
	if longPeriod <= 0 {
		longPeriod = 2 * time.Minute
	}
	return &Window{
		shortLimit:  shortLimit,
		shortPeriod: shortPeriod,
		longLimit:   longLimit,
		longPeriod:  longPeriod,
		shortWindow: make([]time.Time, 0, shortLimit),
		longWindow:  make([]time.Time, 0, longLimit),
		backoff:     backoff,
		now:         time.Now,
	}
}

// Wait blocks until both windows have room, then records the request
func (w *Window) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := w.now()

		w.shortWindow = prune(w.shortWindow, now.Add(-w.shortPeriod))
		w.longWindow = prune(w.longWindow, now.Add(-w.longPeriod))

		var waitTime time.Duration
		switch {
		case len(w.shortWindow) >= w.shortLimit:
			waitTime = w.shortWindow[0].Add(w.shortPeriod).Sub(now) + windowSlack
		case len(w.longWindow) >= w.longLimit:
			waitTime = w.longWindow[0].Add(w.longPeriod).Sub(now) + windowSlack
			log.Printf("[RateLimit] %d req/%s, waiting %.1fs...", len(w.longWindow), w.longPeriod, waitTime.Seconds())
		default:
			w.shortWindow = append(w.shortWindow, now)
			w.longWindow = append(w.longWindow, now)
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()

		if err := sleep(ctx, waitTime); err != nil {
			return err
		}
	}
}

func (w *Window) Backoff(ctx context.Context) error {
	return sleep(ctx, w.backoff)
}

// prune drops timestamps at or before cutoff, reusing the backing array
func prune(times []time.Time, cutoff time.Time) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
