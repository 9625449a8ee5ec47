package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

const (
	testRequestIDValue         = "test-123"
	testIssuer                 = "test-issuer"
	testSubject                = "ops@example.com"
	testToken                  = "v4.public.test"
	testHealthPath             = "/health"
	testMetricsPath            = "/metrics"
	testAPIPath                = "/api/v1/admin/dashboard"
	testPasetoKeyPath          = "secret/paseto/keys"
	authHeaderFormat           = "Bearer %s"
	errKeyRetrievalFailed      = "key retrieval failed"
	errContextCanceled         = "context canceled"
	errContextDeadlineExceeded = "context deadline exceeded"
)

type (
	testCtxKey struct{}

	fakeKeyService struct {
		getPublicKey func(ctx context.Context) (paseto.V4AsymmetricPublicKey, error)
	}

	mockAuthenticateApiKeyHandler struct {
		mock.Mock
	}
)

func (f *fakeKeyService) GetPublicKey(ctx context.Context) (paseto.V4AsymmetricPublicKey, error) {
	return f.getPublicKey(ctx)
}

func (f *fakeKeyService) RefreshKey(context.Context) error {
	return nil
}

func (m *mockAuthenticateApiKeyHandler) Execute(ctx context.Context, query queries.AuthenticateApiKeyQuery) (*domain.Principal, error) {
	args := m.Called(ctx, query)
	principal, _ := args.Get(0).(*domain.Principal)

	return principal, args.Error(1)
}

func staticKeyService(key paseto.V4AsymmetricPublicKey) *fakeKeyService {
	return &fakeKeyService{
		getPublicKey: func(context.Context) (paseto.V4AsymmetricPublicKey, error) {
			return key, nil
		},
	}
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:       true,
		SkipPaths:     []string{testHealthPath, testMetricsPath},
		ValidIssuers:  []string{testIssuer},
		UseVaultKeys:  true,
		KeyCacheTTL:   5 * time.Minute,
		PasetoKeyPath: testPasetoKeyPath,
	}
}

func testLogger() infrastructure.Logger {
	return infrastructure.NewTestLogger()
}

func TestPasetoAuthMiddleware_ContextPropagation(t *testing.T) {
	t.Parallel()

	logger := testLogger()

	cases := []struct {
		name           string
		setupContext   func() (context.Context, context.CancelFunc)
		setupKeyFunc   func(t *testing.T) func(context.Context) (paseto.V4AsymmetricPublicKey, error)
		errorSubstring string
	}{
		{
			name: "context cancellation propagates to key service",
			setupContext: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()

				return ctx, cancel
			},
			setupKeyFunc: func(t *testing.T) func(context.Context) (paseto.V4AsymmetricPublicKey, error) {
				return func(callCtx context.Context) (paseto.V4AsymmetricPublicKey, error) {
					require.Error(t, callCtx.Err(), "expected context to be cancelled")

					return paseto.V4AsymmetricPublicKey{}, callCtx.Err()
				}
			},
			errorSubstring: errContextCanceled,
		},
		{
			name: "context timeout propagates to key service",
			setupContext: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), time.Millisecond)
			},
			setupKeyFunc: func(t *testing.T) func(context.Context) (paseto.V4AsymmetricPublicKey, error) {
				return func(callCtx context.Context) (paseto.V4AsymmetricPublicKey, error) {
					<-callCtx.Done()

					require.Error(t, callCtx.Err(), "expected context to be timed out")

					return paseto.V4AsymmetricPublicKey{}, callCtx.Err()
				}
			},
			errorSubstring: errContextDeadlineExceeded,
		},
		{
			name: "context values propagate to key service",
			setupContext: func() (context.Context, context.CancelFunc) {
				return context.WithValue(context.Background(), testCtxKey{}, testRequestIDValue), func() {}
			},
			setupKeyFunc: func(t *testing.T) func(context.Context) (paseto.V4AsymmetricPublicKey, error) {
				return func(callCtx context.Context) (paseto.V4AsymmetricPublicKey, error) {
					require.Equal(t, testRequestIDValue, callCtx.Value(testCtxKey{}))

					return paseto.V4AsymmetricPublicKey{}, errors.New(errKeyRetrievalFailed)
				}
			},
			errorSubstring: errKeyRetrievalFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := tc.setupContext()
			defer cancel()

			keyService := &fakeKeyService{getPublicKey: tc.setupKeyFunc(t)}
			middleware := NewPasetoAuthMiddleware(testAuthConfig(), logger, keyService)

			req := httptest.NewRequest(http.MethodGet, testAPIPath, nil).WithContext(ctx)
			req.Header.Set("Authorization", fmt.Sprintf(authHeaderFormat, testToken))

			rec := httptest.NewRecorder()

			nextCalled := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				nextCalled = true
			})

			middleware.Middleware(next).ServeHTTP(rec, req)

			require.False(t, nextCalled, "expected next handler not to be called")
			require.Equal(t, http.StatusUnauthorized, rec.Code)

			var problem domain.ProblemDetails
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, domain.CodeInvalidToken, problem.Code)
		})
	}
}

func TestPasetoAuthMiddleware_SkipAuthPaths(t *testing.T) {
	t.Parallel()

	middleware := NewPasetoAuthMiddleware(testAuthConfig(), testLogger(), &fakeKeyService{})

	cases := []struct {
		name       string
		path       string
		shouldSkip bool
	}{
		{
			name:       "health endpoint should skip auth",
			path:       testHealthPath,
			shouldSkip: true,
		},
		{
			name:       "metrics endpoint should skip auth",
			path:       testMetricsPath,
			shouldSkip: true,
		},
		{
			name:       "api endpoint should not skip auth",
			path:       testAPIPath,
			shouldSkip: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rec := httptest.NewRecorder()

			nextCalled := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				nextCalled = true
			})

			middleware.Middleware(next).ServeHTTP(rec, req)

			require.Equal(t, tc.shouldSkip, nextCalled)

			if tc.shouldSkip {
				require.Equal(t, http.StatusOK, rec.Code)
			} else {
				require.Equal(t, http.StatusUnauthorized, rec.Code)
				require.Equal(t, domain.ProblemContentType, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestPasetoAuthMiddleware_Tokens(t *testing.T) {
	t.Parallel()

	secretKey := paseto.NewV4AsymmetricSecretKey()
	otherKey := paseto.NewV4AsymmetricSecretKey()

	issue := func(t *testing.T, key paseto.V4AsymmetricSecretKey, issuer string, ttl time.Duration) string {
		token, err := infrastructure.IssueAdminToken(key.ExportHex(), issuer, testSubject, ttl)
		require.NoError(t, err)

		return token
	}

	cases := []struct {
		name       string
		token      func(t *testing.T) string
		wantStatus int
	}{
		{
			name:       "valid admin token",
			token:      func(t *testing.T) string { return issue(t, secretKey, testIssuer, time.Minute) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "untrusted issuer",
			token:      func(t *testing.T) string { return issue(t, secretKey, "someone-else", time.Minute) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "signed by another key",
			token:      func(t *testing.T) string { return issue(t, otherKey, testIssuer, time.Minute) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			token:      func(t *testing.T) string { return issue(t, secretKey, testIssuer, -time.Minute) },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			middleware := NewPasetoAuthMiddleware(testAuthConfig(), testLogger(), staticKeyService(secretKey.Public()))

			req := httptest.NewRequest(http.MethodGet, testAPIPath, nil)
			req.Header.Set("Authorization", fmt.Sprintf(authHeaderFormat, tc.token(t)))

			rec := httptest.NewRecorder()

			var principal *domain.Principal
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				principal, _ = PrincipalFromContext(r.Context())
			})

			middleware.Middleware(next).ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantStatus == http.StatusOK {
				require.NotNil(t, principal)
				assert.Equal(t, testSubject, principal.Subject)
				assert.Equal(t, domain.PrincipalKindAdmin, principal.Kind)
			}
		})
	}
}

func TestPasetoAuthMiddleware_Disabled(t *testing.T) {
	t.Parallel()

	cfg := testAuthConfig()
	cfg.Enabled = false

	middleware := NewPasetoAuthMiddleware(cfg, testLogger(), &fakeKeyService{})

	nextCalled := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		nextCalled = true
	})

	middleware.Middleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, testAPIPath, nil))

	require.True(t, nextCalled)
}

func TestAuthenticator_RequireScope(t *testing.T) {
	t.Parallel()

	partner := &domain.Principal{Subject: "vizi", Kind: domain.PrincipalKindAPIKey, Scopes: []string{domain.ScopeWebhooksWrite}}

	cases := []struct {
		name       string
		apiKey     string
		principal  *domain.Principal
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "valid key",
			apiKey:     "a1b2c3d4.secret",
			principal:  partner,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing credentials",
			wantStatus: http.StatusUnauthorized,
			wantCode:   domain.CodeUnauthorized,
		},
		{
			name:       "key without scope",
			apiKey:     "a1b2c3d4.secret",
			err:        domain.NewInsufficientScopeError(domain.ScopeWebhooksWrite),
			wantStatus: http.StatusForbidden,
			wantCode:   domain.CodeInsufficientScope,
		},
		{
			name:       "unknown key",
			apiKey:     "ffffffff.secret",
			err:        domain.NewInvalidAPIKeyError(),
			wantStatus: http.StatusUnauthorized,
			wantCode:   domain.CodeInvalidAPIKey,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			apiKeys := &mockAuthenticateApiKeyHandler{}
			apiKeys.On("Execute", mock.Anything, queries.AuthenticateApiKeyQuery{Key: tc.apiKey, Scope: domain.ScopeWebhooksWrite}).
				Return(tc.principal, tc.err)

			authenticator := NewAuthenticator(
				NewPasetoAuthMiddleware(testAuthConfig(), testLogger(), &fakeKeyService{}),
				apiKeys,
			)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/vizi", nil)
			if tc.apiKey != "" {
				req.Header.Set(APIKeyHeader, tc.apiKey)
			}

			rec := httptest.NewRecorder()

			var principal *domain.Principal
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				principal, _ = PrincipalFromContext(r.Context())
			})

			authenticator.RequireScope(domain.ScopeWebhooksWrite)(next).ServeHTTP(rec, req)

			require.Equal(t, tc.wantStatus, rec.Code)

			if tc.wantCode != "" {
				var problem domain.ProblemDetails
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
				assert.Equal(t, tc.wantCode, problem.Code)

				return
			}

			assert.Same(t, partner, principal)
		})
	}
}
