package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

func newTestRateLimiter(t *testing.T, burst int) *ThrottledRateLimitingMiddleware {
	t.Helper()

	limiter, err := NewThrottledRateLimitingMiddleware(config.ThrottledRateLimitingConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         burst,
		EnableIPLimiting:  true,
		MaxKeys:           100,
		SkipPaths:         []string{"/health", "/metrics"},
	}, infrastructure.NewTestLogger())
	require.NoError(t, err)

	return limiter
}

func TestThrottledRateLimitingMiddleware_Limits(t *testing.T) {
	t.Parallel()

	handler := newTestRateLimiter(t, 2).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req.RemoteAddr = "203.0.113.7:51234"

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec
	}

	for range 2 {
		rec := serve()
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := serve()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	var problem domain.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, domain.CodeRateLimitExceeded, problem.Code)
}

func TestThrottledRateLimitingMiddleware_SeparatesClients(t *testing.T) {
	t.Parallel()

	handler := newTestRateLimiter(t, 1).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name       string
		remoteAddr string
		apiKey     string
	}{
		{name: "first ip", remoteAddr: "198.51.100.1:1000"},
		{name: "second ip", remoteAddr: "198.51.100.2:1000"},
		{name: "api key on first ip", remoteAddr: "198.51.100.1:1000", apiKey: "a1b2c3d4.secret"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		req.RemoteAddr = tc.remoteAddr

		if tc.apiKey != "" {
			req.Header.Set(APIKeyHeader, tc.apiKey)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, tc.name)
	}
}

func TestThrottledRateLimitingMiddleware_SkipPaths(t *testing.T) {
	t.Parallel()

	handler := newTestRateLimiter(t, 1).Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for range 5 {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}
