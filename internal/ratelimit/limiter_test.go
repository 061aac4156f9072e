package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, window time.Duration, max int) Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return Limiter{R: client, Window: window, Max: max}
}

func TestLimiterAllowsWithinBudget(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "client-a")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, "client-a")
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Zero(t, d.Remaining)

	// Budgets are per key.
	d, err = l.Allow(ctx, "client-b")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestLimiterWithoutRedisAdmitsEverything(t *testing.T) {
	t.Parallel()

	l := Limiter{Window: time.Minute, Max: 1}
	for i := 0; i < 10; i++ {
		d, err := l.Allow(context.Background(), "anyone")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, time.Minute, 1)
	m := Middleware{Limiter: l, KeyFunc: ClientIP, Logger: zerolog.Nop()}
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestMiddlewareFailsOpenOnRedisError(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close() // limiter calls now fail

	m := Middleware{
		Limiter: Limiter{R: client, Window: time.Minute, Max: 1},
		KeyFunc: ClientIP,
		Logger:  zerolog.Nop(),
	}
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
