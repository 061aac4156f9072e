package currency

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/protoplan/costs-api/internal/obs"
)

// Cached is a read-through Redis cache over another Provider. A nil Redis
// client degrades to pass-through so the engine works uncached.
type Cached struct {
	Next   Provider
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (c *Cached) key(from, to string) string {
	prefix := c.Prefix
	if prefix == "" {
		prefix = "rates:"
	}
	return prefix + from + ":" + to
}

// Rate implements Provider. Cache failures are treated as misses; the
// underlying provider remains the source of truth.
func (c *Cached) Rate(ctx context.Context, from, to string) (float64, error) {
	from = normalize(from)
	to = normalize(to)
	if from == to {
		return 1, nil
	}
	if c.R != nil {
		if raw, err := c.R.Get(ctx, c.key(from, to)).Result(); err == nil {
			if rate, perr := strconv.ParseFloat(raw, 64); perr == nil && rate > 0 {
				obs.CountRateLookup("cache", "hit")
				return rate, nil
			}
		} else if err != redis.Nil {
			obs.CountRateLookup("cache", "error")
		}
	}

	rate, err := c.Next.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	c.store(ctx, from, to, rate)
	return rate, nil
}

// Warm resolves and caches the provided currency pairs. It keeps going on
// per-pair failures and returns the last error seen.
func (c *Cached) Warm(ctx context.Context, pairs [][2]string) error {
	var last error
	for _, pair := range pairs {
		from := normalize(pair[0])
		to := normalize(pair[1])
		if from == "" || to == "" || from == to {
			continue
		}
		rate, err := c.Next.Rate(ctx, from, to)
		if err != nil {
			last = err
			continue
		}
		c.store(ctx, from, to, rate)
	}
	return last
}

func (c *Cached) store(ctx context.Context, from, to string, rate float64) {
	if c.R == nil || rate <= 0 {
		return
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	value := strconv.FormatFloat(rate, 'f', -1, 64)
	_ = c.R.Set(ctx, c.key(from, to), value, ttl).Err()
}
