package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const globalRateLimitKey = "global"

// ThrottledRateLimitingMiddleware applies a GCRA quota per API key, per client IP or globally.
type ThrottledRateLimitingMiddleware struct {
	config  config.ThrottledRateLimitingConfig
	logger  infrastructure.Logger
	limiter *throttled.GCRARateLimiterCtx
}

func NewThrottledRateLimitingMiddleware(cfg config.ThrottledRateLimitingConfig, logger infrastructure.Logger) (*ThrottledRateLimitingMiddleware, error) {
	store, err := memstore.New(cfg.MaxKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}

	quota := throttled.RateQuota{
		MaxRate:  throttled.PerSec(max(cfg.RequestsPerSecond, 1)),
		MaxBurst: max(cfg.BurstSize-1, 0),
	}

	limiter, err := throttled.NewGCRARateLimiter(store, quota)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	return &ThrottledRateLimitingMiddleware{
		config:  cfg,
		logger:  logger.Component("rate_limiter"),
		limiter: limiter,
	}, nil
}

func (m *ThrottledRateLimitingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip(r.URL.Path) {
			next.ServeHTTP(w, r)

			return
		}

		key := m.key(r)

		limited, result, err := m.limiter.RateLimit(key, 1)
		if err != nil {
			m.logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, letting request through")
			next.ServeHTTP(w, r)

			return
		}

		setRateLimitHeaders(w, result)

		if limited {
			m.logger.Debug().Str("key", key).Str("path", r.URL.Path).Msg("rate limit exceeded")

			if result.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(ceilSeconds(result.RetryAfter)))
			}

			WriteProblem(w, r, domain.NewRateLimitError("too many requests, retry later"))

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *ThrottledRateLimitingMiddleware) skip(path string) bool {
	for _, prefix := range m.config.SkipPaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

func (m *ThrottledRateLimitingMiddleware) key(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader)); apiKey != "" {
		prefix, _, _ := strings.Cut(apiKey, ".")

		return "key:" + prefix
	}

	if m.config.EnableIPLimiting {
		return "ip:" + clientIP(r)
	}

	return globalRateLimitKey
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func setRateLimitHeaders(w http.ResponseWriter, result throttled.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(result.ResetAfter)))
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
