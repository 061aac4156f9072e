package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string

	// RedisURL is optional: without it the rate cache degrades to direct
	// provider lookups.
	RedisURL string

	RatesAPIURL        string
	RatesTimeout       time.Duration
	RatesCacheTTL      time.Duration
	RateFallbackPolicy string
	RatesWarmPairs     []string
	RatesWarmSchedule  string

	// Pricing policy: the country and currency gate for sales tax.
	SalesTaxCountryID int64
	SalesTaxCurrency  string

	// Rate limiting for the costs endpoint. Zero RateLimitMax disables it.
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Delivery bracket defaults used when listings carry no explicit basket
	// limit or delivery price.
	DomesticBasketLimit      float64
	DomesticDeliveryPrice    float64
	InternationalBasketLimit float64
	InternationalDelivery    float64
	ImportTaxPercent         float64
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),

		RatesAPIURL:        strings.TrimSpace(k.String("RATES_API_URL")),
		RatesTimeout:       parseDuration(k.String("RATES_TIMEOUT"), "5s"),
		RatesCacheTTL:      parseDuration(k.String("RATES_CACHE_TTL"), "1h"),
		RateFallbackPolicy: valueOrDefault(k.String("RATE_FALLBACK_POLICY"), "default"),
		RatesWarmPairs:     splitAndTrim(k.String("RATES_WARM_PAIRS")),
		RatesWarmSchedule:  valueOrDefault(k.String("RATES_WARM_SCHEDULE"), "@every 1h"),

		RateLimitMax:    int(parseInt64(k.String("RATE_LIMIT_MAX"), 0)),
		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),

		SalesTaxCountryID: parseInt64(k.String("SALES_TAX_COUNTRY_ID"), 2),
		SalesTaxCurrency:  valueOrDefault(k.String("SALES_TAX_CURRENCY"), "USD"),

		DomesticBasketLimit:      parseFloat(k.String("DELIVERY_DOMESTIC_BASKET_LIMIT"), 0),
		DomesticDeliveryPrice:    parseFloat(k.String("DELIVERY_DOMESTIC_PRICE"), 0),
		InternationalBasketLimit: parseFloat(k.String("DELIVERY_INTERNATIONAL_BASKET_LIMIT"), 0),
		InternationalDelivery:    parseFloat(k.String("DELIVERY_INTERNATIONAL_PRICE"), 0),
		ImportTaxPercent:         parseFloat(k.String("IMPORT_TAX_PERCENT"), 0),
	}

	switch strings.ToLower(cfg.RateFallbackPolicy) {
	case "default", "propagate":
	default:
		return nil, fmt.Errorf("invalid RATE_FALLBACK_POLICY %q", cfg.RateFallbackPolicy)
	}

	return cfg, nil
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// WarmPairs parses RATES_WARM_PAIRS entries of the form "USD:GBP" into
// from/to tuples, dropping malformed entries.
func (c *Config) WarmPairs() [][2]string {
	pairs := make([][2]string, 0, len(c.RatesWarmPairs))
	for _, entry := range c.RatesWarmPairs {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		from := strings.ToUpper(strings.TrimSpace(parts[0]))
		to := strings.ToUpper(strings.TrimSpace(parts[1]))
		if from == "" || to == "" {
			continue
		}
		pairs = append(pairs, [2]string{from, to})
	}
	return pairs
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// LoadForTests allows tests to override environment variables without
// leaking into the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
