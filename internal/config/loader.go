package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/architeacher/svc-visa-processing/internal/ports"
)

// secretFields are the Vault keys allowed to override the environment.
var secretFields = map[string]func(cfg *ServiceConfig, value string){
	"POSTGRES_HOST":     func(cfg *ServiceConfig, v string) { cfg.Storage.Host = v },
	"POSTGRES_DATABASE": func(cfg *ServiceConfig, v string) { cfg.Storage.Database = v },
	"POSTGRES_USERNAME": func(cfg *ServiceConfig, v string) { cfg.Storage.Username = v },
	"POSTGRES_PASSWORD": func(cfg *ServiceConfig, v string) { cfg.Storage.Password = v },

	"REDIS_ADDR":     func(cfg *ServiceConfig, v string) { cfg.Cache.Addr = v },
	"REDIS_PASSWORD": func(cfg *ServiceConfig, v string) { cfg.Cache.Password = v },

	"RABBITMQ_HOST":     func(cfg *ServiceConfig, v string) { cfg.Queue.Host = v },
	"RABBITMQ_USERNAME": func(cfg *ServiceConfig, v string) { cfg.Queue.Username = v },
	"RABBITMQ_PASSWORD": func(cfg *ServiceConfig, v string) { cfg.Queue.Password = v },

	"AUTH_SECRET_KEY":           func(cfg *ServiceConfig, v string) { cfg.Auth.SecretKey = v },
	"AUTH_API_KEY_PEPPER":       func(cfg *ServiceConfig, v string) { cfg.Auth.APIKeyPepper = v },
	"AUTH_SUPABASE_HOOK_SECRET": func(cfg *ServiceConfig, v string) { cfg.Auth.SupabaseHookSecret = v },

	"CBB_ACCESS_TOKEN": func(cfg *ServiceConfig, v string) { cfg.CBB.AccessToken = v },
	"AIRTABLE_API_KEY": func(cfg *ServiceConfig, v string) { cfg.Airtable.APIKey = v },
	"AIRTABLE_BASE_ID": func(cfg *ServiceConfig, v string) { cfg.Airtable.BaseID = v },

	"DOCUMENT_STORAGE_ACCESS_KEY_ID":     func(cfg *ServiceConfig, v string) { cfg.DocumentStorage.AccessKeyID = v },
	"DOCUMENT_STORAGE_SECRET_ACCESS_KEY": func(cfg *ServiceConfig, v string) { cfg.DocumentStorage.SecretAccessKey = v },

	"ELASTICSEARCH_USERNAME": func(cfg *ServiceConfig, v string) { cfg.Search.Username = v },
	"ELASTICSEARCH_PASSWORD": func(cfg *ServiceConfig, v string) { cfg.Search.Password = v },
}

type (
	// Loader overlays Vault secrets on the environment config and keeps them fresh.
	Loader struct {
		cfg         *ServiceConfig
		secretsRepo ports.SecretsRepository
		signals     chan os.Signal
		reloads     chan error
		lastVersion uint
	}

	// secretSnapshot is one read of the KV v2 secret: its values and version.
	secretSnapshot struct {
		values  map[string]any
		version uint
	}
)

func NewLoader(cfg *ServiceConfig, secretsRepo ports.SecretsRepository, initialVersion uint) *Loader {
	return &Loader{
		cfg:         cfg,
		secretsRepo: secretsRepo,
		signals:     make(chan os.Signal, 1),
		reloads:     make(chan error, 1),
		lastVersion: initialVersion,
	}
}

// Init config from environment variables.
func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.AppConfig.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.AppConfig.CommitSHA = CommitSHA
	}

	if len(APIVersion) != 0 {
		cfg.AppConfig.APIVersion = APIVersion
	}

	return cfg, nil
}

// Load authenticates against Vault and applies the current secret version.
func (l *Loader) Load(ctx context.Context) (uint, error) {
	if !l.cfg.SecretStorage.Enabled {
		return 0, errors.New("secret storage is not enabled")
	}

	if err := authenticate(ctx, l.secretsRepo, l.cfg.SecretStorage); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	snapshot, err := l.readSecret(ctx)
	if err != nil {
		return 0, err
	}

	applySecrets(l.cfg, snapshot.values)
	l.lastVersion = snapshot.version

	return snapshot.version, nil
}

// WatchConfigSignals reloads secrets on SIGHUP or every poll interval, and dumps the
// config on SIGUSR1. Reload outcomes are sent on the returned channel, nil meaning success.
func (l *Loader) WatchConfigSignals(ctx context.Context) <-chan error {
	signal.Notify(l.signals, syscall.SIGHUP, syscall.SIGUSR1)

	var (
		ticker *time.Ticker
		poll   <-chan time.Time
	)

	if l.cfg.SecretStorage.Enabled && l.cfg.SecretStorage.PollInterval > 0 {
		ticker = time.NewTicker(l.cfg.SecretStorage.PollInterval)
		poll = ticker.C
	}

	go func() {
		defer close(l.reloads)
		defer signal.Stop(l.signals)

		if ticker != nil {
			defer ticker.Stop()
		}

		for {
			select {
			case <-ctx.Done():
				return

			case <-poll:
				l.reload(ctx)

			case sig := <-l.signals:
				if sig == syscall.SIGUSR1 {
					l.DumpConfig(os.Stdout)

					continue
				}

				l.reload(ctx)
			}
		}
	}()

	return l.reloads
}

// DumpConfig writes the current configuration as indented JSON.
func (l *Loader) DumpConfig(w io.Writer) {
	body, err := json.MarshalIndent(l.cfg, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(w, "unable to marshal config: %v\n", err)

		return
	}

	_, _ = fmt.Fprintf(w, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", body)
}

// reload applies the secret only when Vault holds a newer version than the last applied one.
func (l *Loader) reload(ctx context.Context) {
	if !l.cfg.SecretStorage.Enabled {
		return
	}

	snapshot, err := l.readSecret(ctx)
	if err != nil {
		l.report(err)

		return
	}

	if snapshot.version == l.lastVersion {
		return
	}

	applySecrets(l.cfg, snapshot.values)
	l.lastVersion = snapshot.version
	l.report(nil)
}

func (l *Loader) report(err error) {
	select {
	case l.reloads <- err:
	default:
	}
}

// readSecret reads the KV v2 data endpoint, which carries both the values and their metadata.
func (l *Loader) readSecret(ctx context.Context) (secretSnapshot, error) {
	cfg := l.cfg.SecretStorage
	path := fmt.Sprintf("apps/data/%s", cfg.MountPath)

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)

		defer cancel()
	}

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return secretSnapshot{}, fmt.Errorf("failed to read secret %s: %w", path, ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		secret, err := l.secretsRepo.GetSecrets(ctx, path)
		if err != nil {
			lastErr = err

			continue
		}

		if secret == nil || secret.Data == nil {
			return secretSnapshot{}, nil
		}

		values, ok := secret.Data["data"].(map[string]any)
		if !ok {
			return secretSnapshot{}, fmt.Errorf("secret %s has no data section", path)
		}

		metadata, _ := secret.Data["metadata"].(map[string]any)

		version, err := secretVersion(metadata)
		if err != nil {
			return secretSnapshot{}, err
		}

		return secretSnapshot{values: values, version: version}, nil
	}

	return secretSnapshot{}, fmt.Errorf("failed to read secret %s after %d retries: %w", path, cfg.MaxRetries, lastErr)
}

// secretVersion reads "version" from a data response or "current_version" from a metadata one.
func secretVersion(metadata map[string]any) (uint, error) {
	raw, ok := metadata["version"]
	if !ok {
		raw, ok = metadata["current_version"]
	}

	if !ok {
		return 0, nil
	}

	switch v := raw.(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case uint:
		return v, nil
	case json.Number:
		version, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse secret version: %w", err)
		}

		return uint(version), nil
	default:
		return 0, fmt.Errorf("unexpected secret version type %T", raw)
	}
}

// applySecrets sets every known, non-empty string secret and ignores the rest.
func applySecrets(cfg *ServiceConfig, values map[string]any) {
	for key, raw := range values {
		value, ok := raw.(string)
		if !ok || value == "" {
			continue
		}

		if set, known := secretFields[key]; known {
			set(cfg, value)
		}
	}
}

func authenticate(ctx context.Context, client ports.SecretsRepository, cfg SecretStorageConfig) error {
	switch strings.ToLower(cfg.AuthMethod) {
	case "token":
		if cfg.Token == "" {
			return errors.New("token is required for token auth method")
		}

		client.SetToken(cfg.Token)

		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return errors.New("role_id and secret_id are required for approle auth method")
		}

		resp, err := client.WriteWithContext(ctx, "auth/approle/login", map[string]any{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("approle login failed: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return errors.New("no auth info returned from Vault")
		}

		client.SetToken(resp.Auth.ClientToken)

		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}
