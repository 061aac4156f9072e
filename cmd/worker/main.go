// The worker keeps the exchange rate cache warm so API requests rarely pay
// for a live rate lookup. It refreshes the configured currency pairs on a
// cron schedule.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/protoplan/costs-api/internal/config"
	"github.com/protoplan/costs-api/internal/currency"
	"github.com/protoplan/costs-api/internal/lock"
	"github.com/protoplan/costs-api/internal/obs"
	"github.com/protoplan/costs-api/internal/resilience"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	if cfg.RedisURL == "" {
		logger.Fatal().Msg("REDIS_URL is required for the rates worker")
	}
	pairs := cfg.WarmPairs()
	if len(pairs) == 0 {
		logger.Fatal().Msg("RATES_WARM_PAIRS is empty, nothing to refresh")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("ping redis")
	}
	cancel()

	ratesHTTP := resilience.HTTPClient{
		Breaker:     resilience.NewBreaker("rates-api", 10, 0.5, 30*time.Second, logger),
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		Jitter:      0.2,
	}
	cache := &currency.Cached{
		Next: &currency.Client{
			BaseURL: cfg.RatesAPIURL,
			HTTP:    ratesHTTP,
			Timeout: cfg.RatesTimeout,
		},
		R:      redisClient,
		TTL:    cfg.RatesCacheTTL,
		Prefix: "rates:",
	}

	// Only one worker instance refreshes at a time.
	locker := lock.Locker{R: redisClient}
	refresh := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		ran, err := locker.Try(ctx, "rates:warm:lock", 2*time.Minute, func(ctx context.Context) error {
			return cache.Warm(ctx, pairs)
		})
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("rate refresh finished with failures")
		case !ran:
			logger.Debug().Msg("another instance holds the refresh lock")
		default:
			logger.Info().Int("pairs", len(pairs)).Msg("rates refreshed")
		}
	}

	// Warm once at startup so the first API requests already hit the cache.
	refresh()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RatesWarmSchedule, refresh); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.RatesWarmSchedule).Msg("invalid refresh schedule")
	}
	scheduler.Start()
	logger.Info().Str("schedule", cfg.RatesWarmSchedule).Msg("rates worker started")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info().Msg("rates worker stopped")
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
