package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestLimiterPerKey(t *testing.T) {
	l := New(1, 2, time.Minute)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "keys have independent buckets")

	l.now = func() time.Time { return base.Add(time.Second) }
	assert.True(t, l.Allow("a"))
}

func TestLimiterSweep(t *testing.T) {
	l := New(1, 1, time.Minute)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	l.Allow("a")
	l.now = func() time.Time { return base.Add(2 * time.Minute) }
	l.Allow("b")

	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	l := New(0.001, 1, time.Minute)
	e.Use(Middleware(l, "/healthz"))
	e.GET("/api/analysis", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("/api/analysis"))
	assert.Equal(t, http.StatusTooManyRequests, do("/api/analysis"))
	assert.Equal(t, http.StatusOK, do("/healthz"))
	assert.Equal(t, http.StatusOK, do("/healthz"))
}
