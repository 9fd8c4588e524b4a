package telex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig controls RetryWithBackoff.
//
// The map widget never retries; this exists for one-shot tools such as
// telex-snapshot that would rather wait than print an empty list.
type RetryConfig struct {
	// MaxRetries counts attempts after the first one
	MaxRetries int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// RespectRetryAfter waits for a 429's Retry-After instead of the backoff
	RespectRetryAfter bool

	// Logger receives one line per failed attempt; the zero value discards
	Logger zerolog.Logger
}

// DefaultRetryConfig waits 1s, 2s, 4s between four attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      time.Second,
		MaxDelay:          60 * time.Second,
		Multiplier:        2.0,
		RespectRetryAfter: true,
		Logger:            zerolog.Nop(),
	}
}

// backoff is the wait after the given zero-based failed attempt.
func (cfg RetryConfig) backoff(attempt int) time.Duration {
	d := time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt)))
	if d > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return d
}

// RetryWithBackoff calls fn until it succeeds, the retries run out or ctx
// is done. ErrNotFound is returned at once.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithBackoffResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithBackoffResult is RetryWithBackoff for calls that return a value.
//
//	conns, err := RetryWithBackoffResult(ctx, DefaultRetryConfig(), func() ([]Connection, error) {
//	    return client.FetchAllConnections(ctx)
//	})
func RetryWithBackoffResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
		wait   time.Duration
	)

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-timer.C:
			}
		}

		result, err = fn()
		if err == nil {
			return result, nil
		}
		// asking again will not make an unknown id appear
		if errors.Is(err, ErrNotFound) {
			return result, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		wait = cfg.backoff(attempt)
		if rle, ok := IsRateLimitError(err); ok {
			if rle.Headers.Remaining >= 0 {
				cfg.Logger.Warn().
					Int("remaining", rle.Headers.Remaining).
					Int("limit", rle.Headers.Limit).
					Time("reset", rle.Headers.Reset).
					Msg("rate limit hit")
			}
			if cfg.RespectRetryAfter && rle.RetryAfter > 0 {
				wait = rle.RetryAfter
			}
		}
		cfg.Logger.Debug().Err(err).Int("attempt", attempt+1).Dur("delay", wait).Msg("retrying")
	}

	return result, fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, err)
}
