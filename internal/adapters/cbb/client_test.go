package cbb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

func testConfig(baseURL string) config.CBBConfig {
	return config.CBBConfig{
		BaseURL:          baseURL,
		AccessToken:      "test-token",
		PhoneFieldID:     "phone",
		Timeout:          2 * time.Second,
		MaxRetries:       2,
		RetryWaitTime:    time.Millisecond,
		MaxRetryWaitTime: 5 * time.Millisecond,
		ContactCacheSize: 10,
		ContactCacheTTL:  time.Minute,
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     time.Minute,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestEnsureContactUsesExistingContactAndCachesIt(t *testing.T) {
	t.Parallel()

	var lookups atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get(accessTokenHeader))
		assert.Equal(t, "/contacts/find_by_custom_field", r.URL.Path)
		assert.Equal(t, "972501234567", r.URL.Query().Get("value"))
		assert.Equal(t, "phone", r.URL.Query().Get("field_id"))

		lookups.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": 4242}}})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), infrastructure.NewTestLogger())
	contact := domain.Contact{Phone: "+972 50-123-4567", FirstName: "Dana"}

	for range 3 {
		id, err := client.EnsureContact(context.Background(), contact)
		require.NoError(t, err)
		assert.Equal(t, "4242", id)
	}

	assert.Equal(t, int32(1), lookups.Load())
}

func TestEnsureContactCreatesMissingContact(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"data": []any{}})
		case r.Method == http.MethodPost && r.URL.Path == "/contacts":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "447700900123", body["phone"])
			assert.Equal(t, "Smith", body["last_name"])

			writeJSON(w, http.StatusCreated, map[string]any{"id": "c-1"})
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), infrastructure.NewTestLogger())

	id, err := client.EnsureContact(context.Background(), domain.Contact{
		Phone:     "0044 7700 900123",
		FirstName: "Jo",
		LastName:  "Smith",
	})

	require.NoError(t, err)
	assert.Equal(t, "c-1", id)
}

func TestSendTemplateToDeletedContactEvictsIt(t *testing.T) {
	t.Parallel()

	var lookups atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			id := "c-old"
			if lookups.Add(1) > 1 {
				id = "c-new"
			}

			writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": id}}})
		case r.URL.Path == "/contacts/c-old/send_template":
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "contact not found"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{})
		}
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), infrastructure.NewTestLogger())
	contact := domain.Contact{Phone: "972501234567"}

	id, err := client.EnsureContact(context.Background(), contact)
	require.NoError(t, err)
	require.Equal(t, "c-old", id)

	err = client.SendTemplate(context.Background(), id, "order_received", nil)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))

	id, err = client.EnsureContact(context.Background(), contact)
	require.NoError(t, err)
	assert.Equal(t, "c-new", id)
	assert.Equal(t, int32(2), lookups.Load())

	require.NoError(t, client.SendTemplate(context.Background(), id, "order_received", nil))
}

func TestEnsureContactRejectsEmptyPhone(t *testing.T) {
	t.Parallel()

	client := NewClient(testConfig("http://127.0.0.1:1"), infrastructure.NewTestLogger())

	_, err := client.EnsureContact(context.Background(), domain.Contact{Phone: "n/a"})

	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Contains(t, err.Error(), "invalid phone")
}

func TestRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "busy"})

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), infrastructure.NewTestLogger())

	err := client.AddTag(context.Background(), "42", "visa-approved")

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPermanentErrorsAreNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "template not approved"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL), infrastructure.NewTestLogger())

	err := client.SendTemplate(context.Background(), "42", "visa_india", map[string]string{"name": "Dana"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "template not approved", apiErr.Message)
	assert.True(t, apiErr.Permanent())
	assert.Equal(t, int32(1), calls.Load())
}

func TestCircuitBreakerOpensOnRepeatedFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0

	client := NewClient(cfg, infrastructure.NewTestLogger())

	for range 3 {
		err := client.AddTag(context.Background(), "42", "tag")
		require.Error(t, err)
		assert.False(t, IsPermanent(err))
	}

	err := client.AddTag(context.Background(), "42", "tag")

	require.ErrorIs(t, err, domain.ErrCircuitBreakerOpen)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPermanentErrorsDoNotTripTheBreaker(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0

	client := NewClient(cfg, infrastructure.NewTestLogger())

	for range 5 {
		err := client.AddTag(context.Background(), "42", "tag")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrCircuitBreakerOpen)
	}
}

func TestAPIErrorPermanent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		status    int
		permanent bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusNotFound, true},
		{http.StatusUnprocessableEntity, true},
		{http.StatusRequestTimeout, false},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			t.Parallel()

			err := &APIError{StatusCode: tc.status}
			assert.Equal(t, tc.permanent, err.Permanent())
		})
	}
}
