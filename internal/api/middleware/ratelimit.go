package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle client's bucket is kept.
const visitorTTL = 10 * time.Minute

// NewRateLimitStore returns an in-memory token bucket store allowing rps
// requests per second per identifier, with bursts of up to burst.
func NewRateLimitStore(rps float64, burst int) echomiddleware.RateLimiterStore {
	if burst <= 0 {
		burst = 1
	}
	return echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: visitorTTL,
	})
}

// RateLimit rejects requests over the per-IP budget with 429. The client IP
// comes from c.RealIP, so the router's IPExtractor decides which proxy
// headers are trusted.
func RateLimit(store echomiddleware.RateLimiterStore) echo.MiddlewareFunc {
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(echo.Context, string, error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}
