package throttle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a hard admission-control ceiling of maxPerMinute units of work
// per minute. A unit that arrives early waits; nothing is retried.
type Limiter struct {
	limiter *rate.Limiter
}

// PerMinute returns a limiter admitting at most maxPerMinute units per
// minute with no burst. maxPerMinute <= 0 means unlimited.
func PerMinute(maxPerMinute int) *Limiter {
	if maxPerMinute <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	interval := time.Minute / time.Duration(maxPerMinute)
	return &Limiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	return nil
}

// allowAt reports whether a unit would be admitted at t without waiting.
func (l *Limiter) allowAt(t time.Time) bool {
	return l.limiter.AllowN(t, 1)
}
