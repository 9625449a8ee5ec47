package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"aidanwoods.dev/go-paseto/v2"
	"github.com/hashicorp/vault/api"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const (
	vaultKeyField        = "public_key"
	vaultKeyVersionField = "version"

	AdminTokenAudience = "visa-processing-admin"
)

var errMalformedKeySecret = errors.New("malformed PASETO key secret")

type (
	// AdminKeyService serves the public key admin tokens are signed for. The key is read
	// from Vault KV v2 and cached for KeyCacheTTL, the configured fallback key is used
	// when Vault is disabled or cannot provide one.
	AdminKeyService struct {
		config      config.AuthConfig
		secretsRepo ports.SecretsRepository
		logger      Logger

		mu          sync.RWMutex
		cachedKey   *paseto.V4AsymmetricPublicKey
		cacheExpiry time.Time
		fallback    *paseto.V4AsymmetricPublicKey
	}
)

func NewAdminKeyService(cfg config.AuthConfig, secretsRepo ports.SecretsRepository, logger Logger) *AdminKeyService {
	return &AdminKeyService{
		config:      cfg,
		secretsRepo: secretsRepo,
		logger:      logger.Component("admin_keys"),
	}
}

func (s *AdminKeyService) GetPublicKey(ctx context.Context) (paseto.V4AsymmetricPublicKey, error) {
	if !s.config.UseVaultKeys || s.secretsRepo == nil {
		return s.fallbackKey()
	}

	s.mu.RLock()
	if s.cachedKey != nil && time.Now().Before(s.cacheExpiry) {
		key := *s.cachedKey
		s.mu.RUnlock()

		return key, nil
	}
	s.mu.RUnlock()

	return s.load(ctx)
}

// RefreshKey drops the cached key and reads it again.
func (s *AdminKeyService) RefreshKey(ctx context.Context) error {
	s.mu.Lock()
	s.cachedKey = nil
	s.mu.Unlock()

	_, err := s.load(ctx)

	return err
}

func (s *AdminKeyService) load(ctx context.Context) (paseto.V4AsymmetricPublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cachedKey != nil && time.Now().Before(s.cacheExpiry) {
		return *s.cachedKey, nil
	}

	secret, err := s.secretsRepo.GetSecrets(ctx, s.config.PasetoKeyPath)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.config.PasetoKeyPath).Msg("failed to read admin key from Vault, using fallback key")

		return s.parseFallback()
	}

	keyHex, version, err := keyFromSecret(secret)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", s.config.PasetoKeyPath).Msg("invalid admin key secret, using fallback key")

		return s.parseFallback()
	}

	key, err := paseto.NewV4AsymmetricPublicKeyFromHex(keyHex)
	if err != nil {
		s.logger.Warn().Err(err).Str("key_version", version).Msg("failed to parse admin key from Vault, using fallback key")

		return s.parseFallback()
	}

	s.cachedKey = &key
	s.cacheExpiry = time.Now().Add(s.config.KeyCacheTTL)

	s.logger.Info().
		Str("key_version", version).
		Time("expiry", s.cacheExpiry).
		Msg("admin public key loaded from Vault")

	return key, nil
}

func (s *AdminKeyService) fallbackKey() (paseto.V4AsymmetricPublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.parseFallback()
}

// parseFallback expects s.mu to be held.
func (s *AdminKeyService) parseFallback() (paseto.V4AsymmetricPublicKey, error) {
	if s.fallback != nil {
		return *s.fallback, nil
	}

	key, err := paseto.NewV4AsymmetricPublicKeyFromHex(s.config.FallbackKeyHex)
	if err != nil {
		return paseto.V4AsymmetricPublicKey{}, fmt.Errorf("failed to parse fallback admin key: %w", err)
	}

	s.fallback = &key

	return key, nil
}

// keyFromSecret reads the hex key and its version from a KV v2 secret.
func keyFromSecret(secret *api.Secret) (string, string, error) {
	if secret == nil || secret.Data == nil {
		return "", "", fmt.Errorf("%w: empty secret", errMalformedKeySecret)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return "", "", fmt.Errorf("%w: missing data wrapper", errMalformedKeySecret)
	}

	keyHex, _ := data[vaultKeyField].(string)
	if keyHex == "" {
		return "", "", fmt.Errorf("%w: %s is empty", errMalformedKeySecret, vaultKeyField)
	}

	version, _ := data[vaultKeyVersionField].(string)
	if version == "" {
		version = "unknown"
	}

	return keyHex, version, nil
}

// IssueAdminToken signs a v4 public admin token with the hex encoded secret key.
func IssueAdminToken(secretKeyHex, issuer, subject string, ttl time.Duration) (string, error) {
	secretKey, err := paseto.NewV4AsymmetricSecretKeyFromHex(secretKeyHex)
	if err != nil {
		return "", fmt.Errorf("failed to parse admin secret key: %w", err)
	}

	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(issuer)
	token.SetSubject(subject)
	token.SetAudience(AdminTokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))

	return token.V4Sign(secretKey, nil), nil
}
