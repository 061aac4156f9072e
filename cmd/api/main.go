package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/protoplan/costs-api/internal/config"
	"github.com/protoplan/costs-api/internal/costs"
	"github.com/protoplan/costs-api/internal/currency"
	"github.com/protoplan/costs-api/internal/health"
	"github.com/protoplan/costs-api/internal/obs"
	"github.com/protoplan/costs-api/internal/ratelimit"
	"github.com/protoplan/costs-api/internal/resilience"
	"github.com/protoplan/costs-api/internal/units"
)

func main() {
	cfg := config.MustLoad()

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "protoplan")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	httpMetrics := obs.NewHTTPMetrics(metricsNamespace, nil, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", false)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "costs-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	ratesHTTP := resilience.HTTPClient{
		Breaker:     resilience.NewBreaker("rates-api", 10, 0.5, 30*time.Second, logger),
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		Jitter:      0.2,
	}
	rates := &currency.Cached{
		Next: &currency.Client{
			BaseURL: cfg.RatesAPIURL,
			HTTP:    ratesHTTP,
			Timeout: cfg.RatesTimeout,
		},
		R:      redisClient,
		TTL:    cfg.RatesCacheTTL,
		Prefix: "rates:",
	}

	engine := &costs.Engine{
		Units: units.DefaultTable(),
		Rates: rates,
		Fees: costs.HeuristicCountryTax{
			Next: costs.BracketedDelivery{
				Domestic: costs.DeliveryBracket{
					BasketLimit:   cfg.DomesticBasketLimit,
					DeliveryPrice: cfg.DomesticDeliveryPrice,
				},
				International: costs.DeliveryBracket{
					BasketLimit:   cfg.InternationalBasketLimit,
					DeliveryPrice: cfg.InternationalDelivery,
				},
			},
			ImportTaxPercent: cfg.ImportTaxPercent,
		},
		Pricing: &costs.PricingPolicy{
			SalesTaxCountryID: cfg.SalesTaxCountryID,
			SalesTaxCurrency:  cfg.SalesTaxCurrency,
		},
		RatePolicy: costs.ParseRatePolicy(cfg.RateFallbackPolicy),
		Logger:     &logger,
	}

	costsHandler := &costs.Handler{
		Engine:   engine,
		Validate: validator.New(),
		Logger:   logger,
	}
	healthHandler := health.Handler{
		Checker: checker{redis: redisClient, rates: rates},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)

	r.Get("/healthz/live", healthHandler.Live)
	r.Get("/healthz/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		if redisClient != nil && cfg.RateLimitMax > 0 {
			rl := ratelimit.Middleware{
				Limiter: ratelimit.Limiter{
					R:      redisClient,
					Window: cfg.RateLimitWindow,
					Max:    cfg.RateLimitMax,
				},
				KeyFunc: ratelimit.ClientIP,
				Logger:  logger,
			}
			r.Use(rl.Handler)
		}
		r.Post("/protocols/costs", costsHandler.Costs)
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("costs api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown http server")
	}
}

func initRedis(cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("no REDIS_URL configured, rate cache disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return client
}

// checker probes the service dependencies for readiness.
type checker struct {
	redis *redis.Client
	rates currency.Provider
}

func (c checker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c checker) PingRates(ctx context.Context, timeout time.Duration) error {
	if c.rates == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := c.rates.Rate(ctx, "USD", "EUR")
	return err
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
