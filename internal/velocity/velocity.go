// Package velocity provides per-client scan rate limiting.
package velocity

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/veritas/internal/domain"
)

// Decision is the outcome of one rate-limit check.
type Decision struct {
	Allowed bool
	Count   int64
	Limit   int64
	Window  time.Duration
}

// Remaining returns how many requests are left in the current window.
func (d Decision) Remaining() int64 {
	if d.Count >= d.Limit {
		return 0
	}
	return d.Limit - d.Count
}

// Limiter counts requests per client in fixed windows on a shared cache.
// With a Redis-backed cache the limit holds across every API node.
type Limiter struct {
	cache  domain.Cache
	limit  int64
	window time.Duration
}

// NewLimiter creates a limiter from configuration. It returns nil when
// limiting is disabled; a nil *Limiter allows everything.
func NewLimiter(cache domain.Cache, cfg domain.RateLimitConfig) *Limiter {
	if !cfg.Enabled || cfg.Requests <= 0 || cache == nil {
		return nil
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		cache:  cache,
		limit:  cfg.Requests,
		window: window,
	}
}

// Allow records one request for clientID and reports whether it is within
// the limit. Cache failures fail open: the request is allowed and the
// error returned for logging.
func (l *Limiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	if l == nil {
		return Decision{Allowed: true}, nil
	}
	if clientID == "" {
		clientID = "unknown"
	}

	d := Decision{Limit: l.limit, Window: l.window}

	count, err := l.cache.IncrementCounter(ctx, "ratelimit:"+clientID, l.window)
	if err != nil {
		d.Allowed = true
		return d, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	d.Count = count
	d.Allowed = count <= l.limit
	return d, nil
}
