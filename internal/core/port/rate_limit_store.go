package port

import (
	"context"
	"time"
)

// RateLimitDecision is the verdict for one attempt against a sliding window.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// RateLimitStore evaluates and records attempts for a (scope, identifier)
// pair in one call. An allowed attempt is recorded; a denied one is not, so
// throttled clients cannot push their own window further out.
type RateLimitStore interface {
	Allow(ctx context.Context, scope, identifier string, limit int, window time.Duration, now time.Time) (RateLimitDecision, error)
}
