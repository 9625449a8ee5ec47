package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto/v2"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

const (
	APIKeyHeader = "X-API-Key"

	bearerPrefix = "Bearer "
)

type (
	principalCtxKey struct{}

	// PasetoAuthMiddleware admits requests carrying a v4 public admin token.
	PasetoAuthMiddleware struct {
		config     config.AuthConfig
		logger     infrastructure.Logger
		keyService ports.KeyService
		now        func() time.Time
	}

	// Authenticator guards routes with either an admin token or a scoped API key.
	Authenticator struct {
		admin   *PasetoAuthMiddleware
		apiKeys queries.AuthenticateApiKeyQueryHandler
	}
)

func NewPasetoAuthMiddleware(cfg config.AuthConfig, logger infrastructure.Logger, keyService ports.KeyService) *PasetoAuthMiddleware {
	return &PasetoAuthMiddleware{
		config:     cfg,
		logger:     logger.Component("auth"),
		keyService: keyService,
		now:        time.Now,
	}
}

func (m *PasetoAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.Enabled || m.skip(r.URL.Path) {
			next.ServeHTTP(w, r)

			return
		}

		principal, err := m.authenticate(r)
		if err != nil {
			WriteProblem(w, r, err)

			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (m *PasetoAuthMiddleware) skip(path string) bool {
	return slices.Contains(m.config.SkipPaths, path)
}

func (m *PasetoAuthMiddleware) authenticate(r *http.Request) (*domain.Principal, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, domain.NewUnauthorizedError("missing bearer token")
	}

	key, err := m.keyService.GetPublicKey(r.Context())
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to load token verification key")

		return nil, domain.NewInvalidTokenError(err)
	}

	parser := paseto.NewParser()
	parser.AddRule(paseto.ValidAt(m.now()))
	parser.AddRule(paseto.ForAudience(infrastructure.AdminTokenAudience))
	parser.AddRule(m.issuedByTrustedIssuer)

	parsed, err := parser.ParseV4Public(key, token, nil)
	if err != nil {
		m.logger.Debug().Err(err).Msg("admin token rejected")

		return nil, domain.NewInvalidTokenError(err)
	}

	subject, err := parsed.GetSubject()
	if err != nil || subject == "" {
		return nil, domain.NewInvalidTokenError(fmt.Errorf("token has no subject: %w", err))
	}

	return &domain.Principal{
		Subject: subject,
		Kind:    domain.PrincipalKindAdmin,
		Scopes:  []string{domain.ScopeAdmin},
	}, nil
}

func (m *PasetoAuthMiddleware) issuedByTrustedIssuer(token paseto.Token) error {
	issuer, err := token.GetIssuer()
	if err != nil {
		return err
	}

	if len(m.config.ValidIssuers) == 0 || slices.Contains(m.config.ValidIssuers, issuer) {
		return nil
	}

	return fmt.Errorf("issuer %q is not trusted", issuer)
}

func NewAuthenticator(admin *PasetoAuthMiddleware, apiKeys queries.AuthenticateApiKeyQueryHandler) *Authenticator {
	return &Authenticator{
		admin:   admin,
		apiKeys: apiKeys,
	}
}

// RequireAdmin only admits admin tokens.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.admin.Middleware(next)
}

// RequireScope admits admin tokens, or API keys granting scope.
func (a *Authenticator) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !a.admin.config.Enabled {
				next.ServeHTTP(w, r)

				return
			}

			if _, ok := bearerToken(r); ok {
				a.admin.Middleware(next).ServeHTTP(w, r)

				return
			}

			rawKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if rawKey == "" {
				WriteProblem(w, r, domain.NewUnauthorizedError("an admin token or API key is required"))

				return
			}

			principal, err := a.apiKeys.Execute(r.Context(), queries.AuthenticateApiKeyQuery{Key: rawKey, Scope: scope})
			if err != nil {
				WriteProblem(w, r, err)

				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

func WithPrincipal(ctx context.Context, principal *domain.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, principal)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	principal, ok := ctx.Value(principalCtxKey{}).(*domain.Principal)

	return principal, ok && principal != nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}

	token := strings.TrimSpace(header[len(bearerPrefix):])

	return token, token != ""
}
