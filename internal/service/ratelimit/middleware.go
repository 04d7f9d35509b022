package ratelimit

import (
	"net/http"

	httpx "SignalDesk/pkg/http"

	"github.com/labstack/echo/v4"
)

// Middleware rejects requests over the per-client budget with 429.
// Paths in skip (health, metrics) are never limited.
func Middleware(l *Limiter, skip ...string) echo.MiddlewareFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := skipped[c.Path()]; ok {
				return next(c)
			}
			if !l.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return httpx.AppErrorResponse(c,
					httpx.NewAppError("ERR_RATE_LIMITED", "", "too many requests", http.StatusTooManyRequests))
			}
			return next(c)
		}
	}
}
