package dispatch

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// JitterFunc returns a random duration in [lo, hi].
type JitterFunc func(lo, hi time.Duration) time.Duration

// Backoff computes retry delays: BaseDelay * factor^attempt + jitter.
// attempt is the zero-based index of the attempt that just failed.
type Backoff struct {
	BaseDelay time.Duration
	Jitter    JitterFunc
}

// ProviderFault: base * 2^attempt + [1s, 3s].
func (b Backoff) ProviderFault(attempt int) time.Duration {
	return b.delay(2, attempt, 1*time.Second, 3*time.Second)
}

// RateLimited: base * 4^attempt + [5s, 10s].
func (b Backoff) RateLimited(attempt int) time.Duration {
	return b.delay(4, attempt, 5*time.Second, 10*time.Second)
}

// Default: base * 1.5^attempt + [0s, 2s].
func (b Backoff) Default(attempt int) time.Duration {
	return b.delay(1.5, attempt, 0, 2*time.Second)
}

func (b Backoff) delay(factor float64, attempt int, lo, hi time.Duration) time.Duration {
	d := time.Duration(float64(b.BaseDelay) * math.Pow(factor, float64(attempt)))
	jitter := b.Jitter
	if jitter == nil {
		jitter = UniformJitter
	}
	return d + jitter(lo, hi)
}

// UniformJitter picks a duration uniformly from [lo, hi].
func UniformJitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// NoJitter always returns the lower bound.
func NoJitter(lo, _ time.Duration) time.Duration {
	return lo
}

// SleepContext waits for d unless ctx finishes first.
func SleepContext(ctx context.Context, d time.Duration) error {
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
