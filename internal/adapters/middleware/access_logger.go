package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	skipAccessLogKey = "skip_access_log"
)

type AccessLogger struct {
	logger       zerolog.Logger
	includeQuery bool
}

func NewAccessLogger(logger zerolog.Logger, includeQuery bool) *AccessLogger {
	return &AccessLogger{
		logger:       logger.With().Str("component", "http_access").Logger(),
		includeQuery: includeQuery,
	}
}

func (a *AccessLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip, ok := r.Context().Value(skipAccessLogKey).(bool); ok && skip {
			next.ServeHTTP(w, r)

			return
		}

		startTime := time.Now()
		wrapped := recordResponse(w)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(startTime)
		status := wrapped.Status()

		logEvent := a.eventFor(status).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", routePattern(r)).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Str("proto", r.Proto).
			Str("host", r.Host).
			Int("status_code", status).
			Int64("response_size_bytes", wrapped.BytesWritten()).
			Dur("duration", duration).
			Float64("duration_ms", float64(duration.Milliseconds()))

		if a.includeQuery {
			logEvent.Str("query", r.URL.RawQuery)
		}

		requestID := chimiddleware.GetReqID(r.Context())
		if requestID == "" {
			requestID = r.Header.Get("X-Request-ID")
		}

		if requestID != "" {
			logEvent.Str("request_id", requestID)
		}

		if traceID := r.Header.Get("X-Trace-ID"); traceID != "" {
			logEvent.Str("trace_id", traceID)
		}

		if referer := r.Referer(); referer != "" {
			logEvent.Str("referer", referer)
		}

		logEvent.Msg("HTTP request completed")
	})
}

func (a *AccessLogger) eventFor(status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return a.logger.Error()
	case status >= http.StatusBadRequest:
		return a.logger.Warn()
	default:
		return a.logger.Info()
	}
}
