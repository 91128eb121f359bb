// Package backoff provides exponential backoff calculation with jitter.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Config for exponential backoff. Zero values use defaults.
type Config struct {
	Initial time.Duration // default: 100ms
	Max     time.Duration // default: 5s
	Jitter  float64       // fraction of the delay randomized, 0..1 (default: 0)
}

// Delay calculates the backoff delay for a given attempt.
// Attempt 1 yields roughly Initial, attempt 2 roughly Initial*2, and so on,
// capped at Max. With Jitter > 0 the delay is reduced by a random fraction
// up to Jitter so concurrent retriers spread out.
func Delay(attempt int, cfg *Config) time.Duration {
	initial := 100 * time.Millisecond
	maxDelay := 5 * time.Second
	jitter := 0.0
	if cfg != nil {
		if cfg.Initial > 0 {
			initial = cfg.Initial
		}
		if cfg.Max > 0 {
			maxDelay = cfg.Max
		}
		if cfg.Jitter > 0 && cfg.Jitter <= 1 {
			jitter = cfg.Jitter
		}
	}

	if attempt < 1 {
		attempt = 1
	}
	delay := float64(initial) * math.Pow(2.0, float64(attempt-1))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}
	if jitter > 0 {
		delay -= delay * jitter * rand.Float64()
	}
	return time.Duration(delay)
}

// Sleep waits for the backoff delay of the given attempt or until the
// context is done, returning ctx.Err() in that case.
func Sleep(ctx context.Context, attempt int, cfg *Config) error {
	timer := time.NewTimer(Delay(attempt, cfg))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
