package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/protoplan/costs-api/internal/common"
)

// Middleware applies a Limiter in front of an HTTP handler. Limiter errors
// fail open: a broken Redis must not take the API down with it.
type Middleware struct {
	Limiter Limiter
	// KeyFunc derives the budget key from a request. Nil disables limiting.
	KeyFunc func(*http.Request) string
	Logger  zerolog.Logger
}

// Handler wraps next with admission control.
func (m Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.KeyFunc == nil {
			next.ServeHTTP(w, r)
			return
		}
		decision, err := m.Limiter.Allow(r.Context(), m.KeyFunc(r))
		if err != nil {
			m.Logger.Warn().Err(err).Msg("rate limit check failed, admitting request")
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(m.Limiter.Max))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "request budget exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP is the default key function: one budget per remote address.
func ClientIP(r *http.Request) string {
	return r.RemoteAddr
}
