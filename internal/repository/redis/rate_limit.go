package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/port"
)

// RateLimitStore keeps one sorted set per (scope, identifier) pair, scored by
// attempt time in nanoseconds. Each Allow call trims the expired slice of the
// window, reads the survivors, and records the attempt only when it is
// admitted, so denied requests never extend a client's own lockout.
type RateLimitStore struct {
	client    *redis.Client
	keyPrefix string
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)

// NewRateLimitStore constructs a store over the provided Redis client.
func NewRateLimitStore(client *redis.Client, keyPrefix string) *RateLimitStore {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &RateLimitStore{client: client, keyPrefix: keyPrefix}
}

// Allow decides whether an attempt for scope (an endpoint name) by identifier
// (a client key) fits inside the window, recording it when admitted.
func (r *RateLimitStore) Allow(ctx context.Context, scope, identifier string, limit int, window time.Duration, now time.Time) (port.RateLimitDecision, error) {
	if limit <= 0 || window <= 0 {
		return port.RateLimitDecision{}, errors.New("limit and window must be positive")
	}
	if scope == "" || identifier == "" {
		return port.RateLimitDecision{}, errors.New("scope and identifier are required")
	}

	key := fmt.Sprintf("%s:%s:%s", r.keyPrefix, scope, identifier)
	windowStart := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	if err := r.client.ZRemRangeByScore(ctx, key, "-inf", windowStart).Err(); err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis zremrangebyscore: %w", err)
	}

	// after the trim every remaining member is inside the window
	survivors, err := r.client.ZRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis zrange: %w", err)
	}

	reset := now.Add(window)
	if len(survivors) > 0 {
		reset = time.Unix(0, int64(survivors[0].Score)).Add(window)
	}

	if len(survivors) >= limit {
		retryAfter := reset.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return port.RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			Reset:      reset,
			RetryAfter: retryAfter,
		}, nil
	}

	member := redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()}
	if err := r.client.ZAdd(ctx, key, member).Err(); err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis zadd: %w", err)
	}
	if err := r.client.Expire(ctx, key, window).Err(); err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis expire: %w", err)
	}

	remaining := limit - len(survivors) - 1
	if remaining < 0 {
		remaining = 0
	}

	return port.RateLimitDecision{
		Allowed:   true,
		Remaining: remaining,
		Reset:     reset,
	}, nil
}
