package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessLogFilter_Middleware(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		logProbes  bool
		quietPaths []string
		path       string
		wantSkip   bool
	}{
		{name: "liveness probe is quiet", path: "/health/live", wantSkip: true},
		{name: "readiness probe is quiet", path: "/health/ready", wantSkip: true},
		{name: "metrics scrape is quiet", path: "/metrics", wantSkip: true},
		{name: "probes are logged when asked for", logProbes: true, path: "/health", wantSkip: false},
		{name: "api call is logged", path: "/api/v1/orders", wantSkip: false},
		{name: "nested probe path is logged", path: "/health/live/details", wantSkip: false},
		{
			name:       "exact quiet path",
			quietPaths: []string{"/api/v1/webhooks/vizi"},
			path:       "/api/v1/webhooks/vizi",
			wantSkip:   true,
		},
		{
			name:       "wildcard quiet path",
			quietPaths: []string{" /api/v1/webhooks/* ", ""},
			path:       "/api/v1/webhooks/supabase/auth",
			wantSkip:   true,
		},
		{
			name:       "wildcard does not match its parent",
			quietPaths: []string{"/api/v1/webhooks/*"},
			path:       "/api/v1/webhooks",
			wantSkip:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var skipped bool

			handler := NewAccessLogFilter(tc.logProbes, tc.quietPaths).Middleware(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					skipped, _ = r.Context().Value(skipAccessLogKey).(bool)
					w.WriteHeader(http.StatusNoContent)
				}),
			)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, tc.wantSkip, skipped)
		})
	}
}
