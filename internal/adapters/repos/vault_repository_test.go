package repos

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVaultRepository(t *testing.T, handler http.HandlerFunc) *VaultRepository {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := api.DefaultConfig()
	cfg.Address = srv.URL
	cfg.MaxRetries = 0

	client, err := api.NewClient(cfg)
	require.NoError(t, err)

	repo := NewVaultRepository(client)
	repo.SetToken("root")

	return repo
}

func TestVaultRepository_GetSecrets(t *testing.T) {
	t.Parallel()

	repo := newVaultRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/apps/data/visa-processing", r.URL.Path)
		assert.Equal(t, "root", r.Header.Get("X-Vault-Token"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     map[string]any{"CBB_ACCESS_TOKEN": "cbb-token"},
				"metadata": map[string]any{"version": 4},
			},
		})
	})

	secret, err := repo.GetSecrets(t.Context(), "apps/data/visa-processing")
	require.NoError(t, err)
	require.NotNil(t, secret)

	values, ok := secret.Data["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cbb-token", values["CBB_ACCESS_TOKEN"])
}

func TestVaultRepository_GetSecretsFailureNamesPath(t *testing.T) {
	t.Parallel()

	repo := newVaultRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
	})

	_, err := repo.GetSecrets(t.Context(), "apps/data/visa-processing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault read apps/data/visa-processing")
}
