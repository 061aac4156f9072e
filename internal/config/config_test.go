package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"APP_ENV":              "",
		"PORT":                 "",
		"RATE_FALLBACK_POLICY": "",
		"RATES_TIMEOUT":        "",
		"RATES_CACHE_TTL":      "",
		"SALES_TAX_COUNTRY_ID": "",
		"SALES_TAX_CURRENCY":   "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "default", cfg.RateFallbackPolicy)
	require.Equal(t, 5*time.Second, cfg.RatesTimeout)
	require.Equal(t, time.Hour, cfg.RatesCacheTTL)
	require.Equal(t, "@every 1h", cfg.RatesWarmSchedule)
	require.Equal(t, int64(2), cfg.SalesTaxCountryID)
	require.Equal(t, "USD", cfg.SalesTaxCurrency)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"APP_ENV":                             "production",
		"PORT":                                "9090",
		"CORS_ALLOWED_ORIGINS":                "https://a.example, https://b.example",
		"RATES_API_URL":                       "https://rates.example",
		"RATES_TIMEOUT":                       "2s",
		"RATE_FALLBACK_POLICY":                "propagate",
		"RATE_LIMIT_MAX":                      "60",
		"RATE_LIMIT_WINDOW":                   "30s",
		"SALES_TAX_COUNTRY_ID":                "5",
		"DELIVERY_DOMESTIC_BASKET_LIMIT":      "100",
		"DELIVERY_INTERNATIONAL_BASKET_LIMIT": "200",
		"IMPORT_TAX_PERCENT":                  "12.5",
	})
	require.NoError(t, err)
	require.Equal(t, "production", cfg.AppEnv)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, "https://rates.example", cfg.RatesAPIURL)
	require.Equal(t, 2*time.Second, cfg.RatesTimeout)
	require.Equal(t, "propagate", cfg.RateFallbackPolicy)
	require.Equal(t, 60, cfg.RateLimitMax)
	require.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	require.Equal(t, int64(5), cfg.SalesTaxCountryID)
	require.Equal(t, 100.0, cfg.DomesticBasketLimit)
	require.Equal(t, 200.0, cfg.InternationalBasketLimit)
	require.Equal(t, 12.5, cfg.ImportTaxPercent)
}

func TestLoadRejectsUnknownRatePolicy(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"RATE_FALLBACK_POLICY": "explode",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "RATE_FALLBACK_POLICY")
}

func TestWarmPairs(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"RATES_WARM_PAIRS":     "usd:gbp, EUR:GBP, malformed, :GBP",
		"RATE_FALLBACK_POLICY": "",
	})
	require.NoError(t, err)
	require.Equal(t, [][2]string{{"USD", "GBP"}, {"EUR", "GBP"}}, cfg.WarmPairs())
}

func TestHTTPAddrKeepsExplicitColon(t *testing.T) {
	cfg := &Config{Port: ":7000"}
	require.Equal(t, ":7000", cfg.HTTPAddr())
}
