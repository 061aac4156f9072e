// Package ratelimit enforces per-client request budgets using a Redis
// sliding window. Without a Redis client the limiter admits everything, so
// single-instance deployments work without configuration.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a sliding window rate limiter backed by Redis sorted sets.
// Events within the window are scored by nanosecond timestamp; expired
// members are pruned on every check.
type Limiter struct {
	R      *redis.Client
	Prefix string
	Window time.Duration
	Max    int
}

// Allow registers one event for key and reports whether it fits the budget.
func (l Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.R == nil || l.Max <= 0 || l.Window <= 0 {
		return Decision{Allowed: true, Remaining: l.Max, ResetAt: time.Now().Add(l.Window)}, nil
	}

	now := time.Now()
	resetAt := now.Add(l.Window)
	cutoff := float64(now.Add(-l.Window).UnixNano())

	prefix := l.Prefix
	if prefix == "" {
		prefix = "ratelimit:"
	}
	redisKey := prefix + key

	pipe := l.R.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: resetAt}, err
	}

	current := int(countCmd.Val())
	remaining := l.Max - current
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   current <= l.Max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
