package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const corsMaxAge = 10 * 60

// CORSConfig holds CORS configuration. An empty AllowOrigins allows every origin.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// CORS answers preflight requests and decorates responses to allowed origins.
// Requests from other origins pass through without CORS headers.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Add(echo.HeaderVary, echo.HeaderOrigin)

			allow, ok := allowedOrigin(cfg.AllowOrigins, c.Request().Header.Get(echo.HeaderOrigin))
			if !ok {
				return next(c)
			}
			h.Set(echo.HeaderAccessControlAllowOrigin, allow)

			if c.Request().Method != http.MethodOptions {
				return next(c)
			}
			if methods != "" {
				h.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}
			h.Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(corsMaxAge))
			return c.NoContent(http.StatusNoContent)
		}
	}
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin.
func allowedOrigin(allowed []string, origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	if len(allowed) == 0 {
		return "*", true
	}
	for _, o := range allowed {
		switch o {
		case "*":
			return "*", true
		case origin:
			return origin, true
		}
	}
	return "", false
}
