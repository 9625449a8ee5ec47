package middleware

import (
	"context"
	"net/http"
	"strings"
)

// probePaths are hit every few seconds by the orchestrator and the metrics scraper.
var probePaths = []string{"/health", "/health/live", "/health/ready", "/metrics"}

// AccessLogFilter marks requests the access logger should not record: probes, unless
// asked for, and any quiet path. A quiet path ending in "/*" matches everything below it.
type AccessLogFilter struct {
	exact    map[string]struct{}
	prefixes []string
}

func NewAccessLogFilter(logProbes bool, quietPaths []string) *AccessLogFilter {
	f := &AccessLogFilter{exact: make(map[string]struct{})}

	if !logProbes {
		for _, path := range probePaths {
			f.exact[path] = struct{}{}
		}
	}

	for _, path := range quietPaths {
		path = strings.TrimSpace(path)

		switch {
		case path == "":
		case strings.HasSuffix(path, "/*"):
			f.prefixes = append(f.prefixes, strings.TrimSuffix(path, "*"))
		default:
			f.exact[path] = struct{}{}
		}
	}

	return f
}

func (f *AccessLogFilter) quiet(path string) bool {
	if _, ok := f.exact[path]; ok {
		return true
	}

	for _, prefix := range f.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

func (f *AccessLogFilter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.quiet(r.URL.Path) {
			next.ServeHTTP(w, r)

			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), skipAccessLogKey, true)))
	})
}
