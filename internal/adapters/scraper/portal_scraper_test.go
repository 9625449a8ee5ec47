package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const portalPage = `<!DOCTYPE html>
<html>
<head><title>  Visa   Application Tracker </title></head>
<body>
	<div class="application">
		<span id="status">
			Application   APPROVED
		</span>
	</div>
</body>
</html>`

func newTestScraper(cfg config.ScraperConfig) *PortalScraper {
	scraper := NewPortalScraper(cfg, infrastructure.NewTestLogger())
	scraper.allowPrivateHosts = true

	return scraper
}

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		MaxRetries:           0,
		RetryWaitTime:        time.Millisecond,
		MaxRetryWaitTime:     5 * time.Millisecond,
		MaxRedirects:         3,
		MaxResponseSizeBytes: 1 << 20,
		Timeout:              2 * time.Second,
		UserAgent:            "VisaProcessing/test",
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
		},
	}
}

func TestScrapeReadsStatusFromSelector(t *testing.T) {
	t.Parallel()

	var userAgent atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent.Store(r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(portalPage))
	}))
	defer server.Close()

	result, err := newTestScraper(testConfig()).Scrape(context.Background(), server.URL+"/track", "#status")
	require.NoError(t, err)

	assert.Equal(t, "Application APPROVED", result.RawStatus)
	assert.Equal(t, domain.OrderStatusApproved, result.VisaStatus)
	assert.Equal(t, "Visa Application Tracker", result.Title)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "VisaProcessing/test", userAgent.Load())
}

func TestScrapeKeepsUnknownStatusUnmapped(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p class="state">Awaiting biometrics</p></body></html>`))
	}))
	defer server.Close()

	result, err := newTestScraper(testConfig()).Scrape(context.Background(), server.URL, "p.state")
	require.NoError(t, err)

	assert.Equal(t, "Awaiting biometrics", result.RawStatus)
	assert.Empty(t, result.VisaStatus)
}

func TestScrapeFailureClassification(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name          string
		status        int
		body          string
		selector      string
		maxBytes      int64
		wantCode      string
		wantPermanent bool
	}{
		{
			name:          "selector matches nothing",
			status:        http.StatusOK,
			body:          portalPage,
			selector:      "#missing",
			wantCode:      "STATUS_NOT_FOUND",
			wantPermanent: true,
		},
		{
			name:          "page not found",
			status:        http.StatusNotFound,
			body:          "gone",
			selector:      "#status",
			wantCode:      "PORTAL_REJECTED",
			wantPermanent: true,
		},
		{
			name:          "portal overloaded",
			status:        http.StatusServiceUnavailable,
			body:          "busy",
			selector:      "#status",
			wantCode:      "PORTAL_UNAVAILABLE",
			wantPermanent: false,
		},
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          "slow down",
			selector:      "#status",
			wantCode:      "PORTAL_UNAVAILABLE",
			wantPermanent: false,
		},
		{
			name:          "page too large",
			status:        http.StatusOK,
			body:          strings.Repeat("a", 64),
			selector:      "#status",
			maxBytes:      16,
			wantCode:      "RESPONSE_TOO_LARGE",
			wantPermanent: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			cfg := testConfig()
			if tc.maxBytes > 0 {
				cfg.MaxResponseSizeBytes = tc.maxBytes
			}

			_, err := newTestScraper(cfg).Scrape(context.Background(), server.URL, tc.selector)
			require.Error(t, err)

			jobErr := asJobError(t, err)
			assert.Equal(t, tc.wantCode, jobErr.Code)
			assert.Equal(t, tc.wantPermanent, domain.IsPermanent(err))
		})
	}
}

func TestScrapeRejectsInvalidTargets(t *testing.T) {
	t.Parallel()

	scraper := NewPortalScraper(testConfig(), infrastructure.NewTestLogger())

	testCases := []struct {
		name     string
		url      string
		selector string
		wantCode string
	}{
		{name: "empty url", url: "", selector: "#status", wantCode: "INVALID_URL"},
		{name: "ftp scheme", url: "ftp://portal.example.com", selector: "#status", wantCode: "INVALID_URL"},
		{name: "loopback host", url: "http://127.0.0.1/track", selector: "#status", wantCode: "INVALID_URL"},
		{name: "localhost", url: "http://localhost:8080", selector: "#status", wantCode: "INVALID_URL"},
		{name: "private network", url: "http://10.0.0.12/status", selector: "#status", wantCode: "INVALID_URL"},
		{name: "blank selector", url: "https://portal.example.com", selector: "  ", wantCode: "INVALID_SELECTOR"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := scraper.Scrape(context.Background(), tc.url, tc.selector)
			require.Error(t, err)

			assert.Equal(t, tc.wantCode, asJobError(t, err).Code)
			assert.True(t, domain.IsPermanent(err))
		})
	}
}

func TestScrapeOpensCircuitAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	scraper := newTestScraper(testConfig())

	for range 3 {
		_, err := scraper.Scrape(context.Background(), server.URL, "#status")
		require.Error(t, err)
	}

	_, err := scraper.Scrape(context.Background(), server.URL, "#status")
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrCircuitBreakerOpen)
	assert.False(t, domain.IsPermanent(err))
	assert.Equal(t, int32(3), calls.Load())
}

func asJobError(t *testing.T, err error) *domain.JobError {
	t.Helper()

	var jobErr *domain.JobError
	require.ErrorAs(t, err, &jobErr)

	return jobErr
}
