package infrastructure_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"aidanwoods.dev/go-paseto/v2"
	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const (
	testPublicKeyHex = "01c7981f62c676934dc4acfa7825205ae927960875d09abec497efbe2dba41b7"
	testKeyPath      = "secret/data/paseto/public-key"
)

type MockSecretsRepository struct {
	mock.Mock
}

func (m *MockSecretsRepository) SetToken(v string) {
	m.Called(v)
}

func (m *MockSecretsRepository) GetSecrets(ctx context.Context, path string) (*api.Secret, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*api.Secret), args.Error(1)
}

func (m *MockSecretsRepository) WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error) {
	args := m.Called(ctx, path, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*api.Secret), args.Error(1)
}

func vaultAuthConfig(fallback string) config.AuthConfig {
	return config.AuthConfig{
		UseVaultKeys:   true,
		PasetoKeyPath:  testKeyPath,
		KeyCacheTTL:    time.Hour,
		FallbackKeyHex: fallback,
	}
}

func kvSecret(data map[string]any) *api.Secret {
	return &api.Secret{Data: map[string]any{"data": data}}
}

func TestAdminKeyService_VaultDisabledUsesFallback(t *testing.T) {
	t.Parallel()

	repo := new(MockSecretsRepository)
	cfg := config.AuthConfig{UseVaultKeys: false, FallbackKeyHex: testPublicKeyHex}

	service := infrastructure.NewAdminKeyService(cfg, repo, infrastructure.NewTestLogger())

	key, err := service.GetPublicKey(context.Background())

	require.NoError(t, err)
	assert.Equal(t, testPublicKeyHex, key.ExportHex())
	repo.AssertNotCalled(t, "GetSecrets", mock.Anything, mock.Anything)
}

func TestAdminKeyService_LoadsFromVaultOnce(t *testing.T) {
	t.Parallel()

	vaultKey := paseto.NewV4AsymmetricSecretKey().Public()

	repo := new(MockSecretsRepository)
	repo.On("GetSecrets", mock.Anything, testKeyPath).
		Return(kvSecret(map[string]any{"public_key": vaultKey.ExportHex(), "version": "v2"}), nil).
		Once()

	service := infrastructure.NewAdminKeyService(vaultAuthConfig(testPublicKeyHex), repo, infrastructure.NewTestLogger())

	first, err := service.GetPublicKey(context.Background())
	require.NoError(t, err)

	second, err := service.GetPublicKey(context.Background())
	require.NoError(t, err)

	assert.Equal(t, vaultKey.ExportHex(), first.ExportHex())
	assert.Equal(t, first.ExportHex(), second.ExportHex())
	repo.AssertExpectations(t)
}

func TestAdminKeyService_FallsBackOnBadVaultResponse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		secret *api.Secret
		err    error
	}{
		{name: "vault error", err: errors.New("vault connection error")},
		{name: "nil secret"},
		{name: "nil data", secret: &api.Secret{}},
		{name: "missing kv wrapper", secret: &api.Secret{Data: map[string]any{"public_key": testPublicKeyHex}}},
		{name: "missing public key", secret: kvSecret(map[string]any{"version": "v1"})},
		{name: "empty public key", secret: kvSecret(map[string]any{"public_key": ""})},
		{name: "invalid hex", secret: kvSecret(map[string]any{"public_key": "invalid-hex"})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := new(MockSecretsRepository)
			repo.On("GetSecrets", mock.Anything, testKeyPath).Return(tc.secret, tc.err)

			service := infrastructure.NewAdminKeyService(vaultAuthConfig(testPublicKeyHex), repo, infrastructure.NewTestLogger())

			key, err := service.GetPublicKey(context.Background())

			require.NoError(t, err)
			assert.Equal(t, testPublicKeyHex, key.ExportHex())
		})
	}
}

func TestAdminKeyService_RefreshKeyReadsVaultAgain(t *testing.T) {
	t.Parallel()

	repo := new(MockSecretsRepository)
	repo.On("GetSecrets", mock.Anything, testKeyPath).
		Return(kvSecret(map[string]any{"public_key": testPublicKeyHex, "version": "v1"}), nil).
		Twice()

	service := infrastructure.NewAdminKeyService(vaultAuthConfig(testPublicKeyHex), repo, infrastructure.NewTestLogger())

	_, err := service.GetPublicKey(context.Background())
	require.NoError(t, err)

	require.NoError(t, service.RefreshKey(context.Background()))
	repo.AssertExpectations(t)
}

func TestAdminKeyService_InvalidFallbackKey(t *testing.T) {
	t.Parallel()

	cfg := config.AuthConfig{UseVaultKeys: false, FallbackKeyHex: "invalid-hex-key"}

	service := infrastructure.NewAdminKeyService(cfg, nil, infrastructure.NewTestLogger())

	key, err := service.GetPublicKey(context.Background())

	require.Error(t, err)
	assert.Equal(t, paseto.V4AsymmetricPublicKey{}, key)
}

func TestIssueAdminToken(t *testing.T) {
	t.Parallel()

	secretKey := paseto.NewV4AsymmetricSecretKey()

	token, err := infrastructure.IssueAdminToken(secretKey.ExportHex(), "visa-processing-admin", "ops@example.com", time.Minute)
	require.NoError(t, err)

	parser := paseto.NewParser()
	parser.AddRule(paseto.IssuedBy("visa-processing-admin"))
	parser.AddRule(paseto.ForAudience(infrastructure.AdminTokenAudience))

	parsed, err := parser.ParseV4Public(secretKey.Public(), token, nil)
	require.NoError(t, err)

	subject, err := parsed.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", subject)

	_, err = infrastructure.IssueAdminToken("not-hex", "issuer", "subject", time.Minute)
	require.Error(t, err)
}
