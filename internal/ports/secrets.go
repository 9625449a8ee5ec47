package ports

import (
	"context"

	"aidanwoods.dev/go-paseto/v2"
	"github.com/hashicorp/vault/api"
)

type (
	// SecretsRepository is the Vault surface config reloads and admin keys are read through.
	SecretsRepository interface {
		SetToken(token string)
		GetSecrets(ctx context.Context, path string) (*api.Secret, error)
		WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error)
	}

	// KeyService holds the public key admin PASETO tokens are verified with.
	KeyService interface {
		GetPublicKey(ctx context.Context) (paseto.V4AsymmetricPublicKey, error)
		// RefreshKey replaces the cached key with a fresh read from Vault.
		RefreshKey(ctx context.Context) error
	}
)
