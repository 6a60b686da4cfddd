package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

func TestAuth(t *testing.T) {
	t.Run("disabled when key empty", func(t *testing.T) {
		h := Auth("")(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		h := Auth("secret")(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing authentication token")
	})

	t.Run("wrong token", func(t *testing.T) {
		h := Auth("secret")(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("X-API-Key", "wrong")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer token accepted", func(t *testing.T) {
		h := Auth("secret")(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("api key header accepted", func(t *testing.T) {
		h := Auth("secret")(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("X-API-Key", "secret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("exempt path bypasses auth", func(t *testing.T) {
		h := Auth("secret", "/api/health")(okHandler())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	t.Run("allowed origin echoed", func(t *testing.T) {
		h := CORS([]string{"http://localhost:3000"})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown origin gets no header", func(t *testing.T) {
		h := CORS([]string{"http://localhost:3000"})(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("empty list allows all", func(t *testing.T) {
		h := CORS(nil)(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("Origin", "http://anywhere.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "http://anywhere.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		called := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
		h := CORS(nil)(next)

		req := httptest.NewRequest(http.MethodOptions, "/api/alerts", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.False(t, called)
	})
}

func TestLoggingPreservesResponse(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())
}

// fakeLimiter scripts the limiter responses for the middleware tests.
type fakeLimiter struct {
	allowed bool
	err     error
	lastKey string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.lastKey = key
	return f.allowed, f.err
}

func (f *fakeLimiter) Wait(context.Context, string) error { return nil }

func TestRateLimit(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		lim := &fakeLimiter{allowed: true}
		h := RateLimit(lim, 10, time.Minute)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.RemoteAddr = "203.0.113.7:54321"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "api:203.0.113.7", lim.lastKey)
	})

	t.Run("denied", func(t *testing.T) {
		lim := &fakeLimiter{allowed: false}
		h := RateLimit(lim, 10, time.Minute)(okHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("limiter error fails open", func(t *testing.T) {
		lim := &fakeLimiter{err: errors.New("redis down")}
		h := RateLimit(lim, 10, time.Minute)(okHandler())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("forwarded header wins", func(t *testing.T) {
		lim := &fakeLimiter{allowed: true}
		h := RateLimit(lim, 10, time.Minute)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "api:198.51.100.9", lim.lastKey)
	})
}
