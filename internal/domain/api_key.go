package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	ScopeOrdersRead     = "orders:read"
	ScopeOrdersWrite    = "orders:write"
	ScopeWorkflowsRead  = "workflows:read"
	ScopeWorkflowsWrite = "workflows:write"
	ScopeWebhooksWrite  = "webhooks:write"
	ScopeAdmin          = "admin"

	APIKeyPrefixLength = 8
	APIKeySecretLength = 32
)

var KnownScopes = []string{
	ScopeOrdersRead,
	ScopeOrdersWrite,
	ScopeWorkflowsRead,
	ScopeWorkflowsWrite,
	ScopeWebhooksWrite,
	ScopeAdmin,
}

type (
	ApiKey struct {
		ID         uuid.UUID  `json:"id"`
		Name       string     `json:"name"`
		Prefix     string     `json:"prefix"`
		SecretHash string     `json:"-"`
		Scopes     []string   `json:"scopes"`
		ExpiresAt  *time.Time `json:"expires_at,omitempty"`
		RevokedAt  *time.Time `json:"revoked_at,omitempty"`
		LastUsedAt *time.Time `json:"last_used_at,omitempty"`
		CreatedAt  time.Time  `json:"created_at"`
	}

	// IssuedApiKey is returned once on creation, the plain key is never stored.
	IssuedApiKey struct {
		ApiKey
		PlainKey string `json:"key"`
	}

	// Principal is the authenticated caller of a request.
	Principal struct {
		Subject string
		Kind    string
		Scopes  []string
	}
)

const (
	PrincipalKindAdmin  = "admin"
	PrincipalKindAPIKey = "api_key"
)

// HasScope reports whether the key grants scope, the admin scope grants everything.
func (k *ApiKey) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope) || slices.Contains(k.Scopes, ScopeAdmin)
}

func (k *ApiKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !now.Before(*k.ExpiresAt)
}

func (k *ApiKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

func (k *ApiKey) Usable(now time.Time) bool {
	return !k.IsRevoked() && !k.IsExpired(now)
}

func (p Principal) HasScope(scope string) bool {
	if p.Kind == PrincipalKindAdmin {
		return true
	}

	return slices.Contains(p.Scopes, scope) || slices.Contains(p.Scopes, ScopeAdmin)
}

func ValidScope(scope string) bool {
	return slices.Contains(KnownScopes, scope)
}
