package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const apiKeySeparator = "."

type (
	ApiKeyService interface {
		Create(ctx context.Context, name string, scopes []string, expiresAt *time.Time) (*domain.IssuedApiKey, error)
		List(ctx context.Context, page domain.PageRequest) (domain.Page[*domain.ApiKey], error)
		Revoke(ctx context.Context, id uuid.UUID) error
		// Authenticate resolves a "<prefix>.<secret>" key into a principal holding scope.
		Authenticate(ctx context.Context, rawKey, scope string) (*domain.Principal, error)
	}

	apiKeyService struct {
		apiKeyRepo ports.ApiKeyRepository
		pepper     string
		now        func() time.Time
		logger     infrastructure.Logger
	}
)

func NewApiKeyService(apiKeyRepo ports.ApiKeyRepository, pepper string, logger infrastructure.Logger) ApiKeyService {
	return &apiKeyService{
		apiKeyRepo: apiKeyRepo,
		pepper:     pepper,
		now:        time.Now,
		logger:     logger.Component("api-keys"),
	}
}

func (s *apiKeyService) Create(
	ctx context.Context,
	name string,
	scopes []string,
	expiresAt *time.Time,
) (*domain.IssuedApiKey, error) {
	var fields []domain.FieldError

	if strings.TrimSpace(name) == "" {
		fields = append(fields, domain.FieldError{Field: "name", Message: "is required"})
	}

	if len(scopes) == 0 {
		fields = append(fields, domain.FieldError{Field: "scopes", Message: "at least one scope is required"})
	}

	for _, scope := range scopes {
		if !domain.ValidScope(scope) {
			fields = append(fields, domain.FieldError{Field: "scopes", Message: "unknown scope " + scope})
		}
	}

	if expiresAt != nil && !expiresAt.After(s.now()) {
		fields = append(fields, domain.FieldError{Field: "expires_at", Message: "must be in the future"})
	}

	if len(fields) > 0 {
		return nil, domain.NewValidationError("invalid api key", fields...)
	}

	prefix, err := randomHex(domain.APIKeyPrefixLength / 2)
	if err != nil {
		return nil, err
	}

	secret, err := randomHex(domain.APIKeySecretLength / 2)
	if err != nil {
		return nil, err
	}

	key := &domain.ApiKey{
		Name:       name,
		Prefix:     prefix,
		SecretHash: domain.HashSecret(secret, s.pepper),
		Scopes:     scopes,
		ExpiresAt:  expiresAt,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.apiKeyRepo.Create(ctx, key); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("api_key_id", key.ID.String()).
		Str("prefix", key.Prefix).
		Strs("scopes", key.Scopes).
		Msg("api key issued")

	return &domain.IssuedApiKey{ApiKey: *key, PlainKey: prefix + apiKeySeparator + secret}, nil
}

func (s *apiKeyService) List(ctx context.Context, page domain.PageRequest) (domain.Page[*domain.ApiKey], error) {
	keys, total, err := s.apiKeyRepo.List(ctx, page)
	if err != nil {
		return domain.Page[*domain.ApiKey]{}, fmt.Errorf("failed to list api keys: %w", err)
	}

	return domain.NewPage(keys, page, total), nil
}

func (s *apiKeyService) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := s.apiKeyRepo.Revoke(ctx, id, s.now().UTC()); err != nil {
		return err
	}

	s.logger.Info().Str("api_key_id", id.String()).Msg("api key revoked")

	return nil
}

func (s *apiKeyService) Authenticate(ctx context.Context, rawKey, scope string) (*domain.Principal, error) {
	prefix, secret, ok := strings.Cut(strings.TrimSpace(rawKey), apiKeySeparator)
	if !ok || prefix == "" || secret == "" {
		return nil, domain.NewInvalidAPIKeyError()
	}

	key, err := s.apiKeyRepo.FindByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewInvalidAPIKeyError()
		}

		return nil, err
	}

	hash := domain.HashSecret(secret, s.pepper)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(key.SecretHash)) != 1 {
		return nil, domain.NewInvalidAPIKeyError()
	}

	now := s.now()
	if !key.Usable(now) {
		return nil, domain.NewAPIKeyExpiredError()
	}

	if scope != "" && !key.HasScope(scope) {
		return nil, domain.NewInsufficientScopeError(scope)
	}

	if err := s.apiKeyRepo.TouchLastUsed(ctx, key.ID, now.UTC()); err != nil {
		s.logger.Warn().Err(err).Str("api_key_id", key.ID.String()).Msg("failed to record api key usage")
	}

	return &domain.Principal{
		Subject: key.ID.String(),
		Kind:    domain.PrincipalKindAPIKey,
		Scopes:  key.Scopes,
	}, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
