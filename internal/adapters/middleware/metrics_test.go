package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

type mockMetrics struct {
	infrastructure.Metrics

	recordedMethod       string
	recordedPath         string
	recordedStatusCode   int
	recordedDuration     time.Duration
	recordedRequestSize  int64
	recordedResponseSize int64
}

func (m *mockMetrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	m.recordedMethod = method
	m.recordedPath = path
	m.recordedStatusCode = statusCode
	m.recordedDuration = duration
	m.recordedRequestSize = requestSize
	m.recordedResponseSize = responseSize
}

func TestMetricsMiddleware_Middleware(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name               string
		method             string
		path               string
		statusCode         int
		responseBody       string
		expectedStatusCode int
	}{
		{
			name:               "records successful GET request",
			method:             "GET",
			path:               "/api/v1/orders",
			statusCode:         http.StatusOK,
			responseBody:       "success response",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "records POST request with created status",
			method:             "POST",
			path:               "/api/v1/orders",
			statusCode:         http.StatusCreated,
			responseBody:       "{\"id\":\"123\"}",
			expectedStatusCode: http.StatusCreated,
		},
		{
			name:               "records bad request error",
			method:             "POST",
			path:               "/api/v1/orders",
			statusCode:         http.StatusBadRequest,
			responseBody:       "bad request",
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "records internal server error",
			method:             "GET",
			path:               "/api/v1/workflows",
			statusCode:         http.StatusInternalServerError,
			responseBody:       "error",
			expectedStatusCode: http.StatusInternalServerError,
		},
		{
			name:               "records not found error",
			method:             "GET",
			path:               "/api/v1/admin/dashboard",
			statusCode:         http.StatusNotFound,
			responseBody:       "not found",
			expectedStatusCode: http.StatusNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mock := &mockMetrics{}
			metricsMiddleware := NewMetricsMiddleware(mock)

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
				_, _ = w.Write([]byte(tc.responseBody))
			})

			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()

			middleware := metricsMiddleware.Middleware(handler)
			middleware.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code, "response status code mismatch")
			assert.Equal(t, tc.method, mock.recordedMethod, "recorded method mismatch")
			assert.Equal(t, tc.path, mock.recordedPath, "recorded path mismatch")
			assert.Equal(t, tc.statusCode, mock.recordedStatusCode, "recorded status code mismatch")
			assert.Greater(t, mock.recordedDuration, time.Duration(0), "recorded duration should be positive")
			assert.Equal(t, int64(len(tc.responseBody)), mock.recordedResponseSize, "recorded response size mismatch")
		})
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	t.Parallel()

	mock := &mockMetrics{}

	router := chi.NewRouter()
	router.Use(NewMetricsMiddleware(mock).Middleware)
	router.Get("/api/v1/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/5b0c6a52-2f7e-4c38-9d0c-1f3bb8a3b9a1", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, "/api/v1/orders/{id}", mock.recordedPath)
	assert.Equal(t, http.StatusOK, mock.recordedStatusCode)
}
