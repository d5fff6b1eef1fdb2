package worker

import (
	"context"
	"log/slog"
	"time"
)

// Sweepable drops expired entries and returns how many it dropped.
type Sweepable interface {
	Sweep(ctx context.Context) int
}

// Sweeper expires idle sessions on a timer.
type Sweeper struct {
	target   Sweepable
	ttl      time.Duration
	interval time.Duration
}

// NewSweeper creates a sweeper for entries that expire after ttl. The check
// interval is 10% of ttl, bounded to [1m, 1h].
func NewSweeper(target Sweepable, ttl time.Duration) *Sweeper {
	interval := min(ttl/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)
	return &Sweeper{target: target, ttl: ttl, interval: interval}
}

// Interval returns the time between sweeps.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// Start runs the sweep loop until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	if s.ttl <= 0 {
		return // Expiry disabled
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if n := s.target.Sweep(ctx); n > 0 {
		slog.Info("[Sweeper] expired idle sessions", "count", n, "ttl", s.ttl)
	}
}
