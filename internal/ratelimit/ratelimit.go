// Package ratelimit paces calls to the Riot API.
//
// The collector calls Wait after every request and Backoff after a failure
// that skips a whole bracket. Implementations must honor ctx cancellation.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

const (
	// Defaults for a personal/dev key walking the ladder sequentially
	DefaultRequestInterval = 1200 * time.Millisecond
	DefaultErrorBackoff    = 10 * time.Second
)

// Strategy names accepted by New
const (
	StrategyBucket = "bucket"
	StrategyWindow = "window"
	StrategyNone   = "none"
)

// Limiter is the pacing collaborator injected into the collector
type Limiter interface {
	// Wait blocks until the next request may be sent
	Wait(ctx context.Context) error
	// Backoff blocks for the error back-off interval
	Backoff(ctx context.Context) error
}

// Settings holds the knobs shared by all strategies
type Settings struct {
	RequestInterval time.Duration
	ErrorBackoff    time.Duration

	// Window strategy only
	ShortLimit  int
	ShortWindow time.Duration
	LongLimit   int
	LongWindow  time.Duration
}

// DefaultSettings returns the default pacing plus Riot dev-key window limits
func DefaultSettings() Settings {
	return Settings{
		RequestInterval: DefaultRequestInterval,
		ErrorBackoff:    DefaultErrorBackoff,
		ShortLimit:      DevKeyShortLimit,
		ShortWindow:     time.Second,
		LongLimit:       DevKeyLongLimit,
		LongWindow:      2 * time.Minute,
	}
}

// New builds a limiter for the named strategy
func New(strategy string, s Settings) (Limiter, error) {
	switch strategy {
	case StrategyBucket, "":
		return NewBucket(s.RequestInterval, s.ErrorBackoff), nil
	case StrategyWindow:
		return NewWindow(s.ShortLimit, s.ShortWindow, s.LongLimit, s.LongWindow, s.ErrorBackoff), nil
	case StrategyNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown rate limiter %q (expected %s, %s or %s)",
			strategy, StrategyBucket, StrategyWindow, StrategyNone)
	}
}

// Noop never blocks. Used by tests and offline replays.
type Noop struct{}

func (Noop) Wait(ctx context.Context) error    { return ctx.Err() }
func (Noop) Backoff(ctx context.Context) error { return ctx.Err() }

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
