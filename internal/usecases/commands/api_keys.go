package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
)

type (
	CreateApiKeyCommand struct {
		Name      string
		Scopes    []string
		ExpiresAt *time.Time
	}

	RevokeApiKeyCommand struct {
		ID uuid.UUID
	}

	CreateApiKeyHandler decorator.CommandHandler[CreateApiKeyCommand, *domain.IssuedApiKey]
	RevokeApiKeyHandler decorator.CommandHandler[RevokeApiKeyCommand, struct{}]

	createApiKeyHandler struct {
		apiKeyService service.ApiKeyService
	}

	revokeApiKeyHandler struct {
		apiKeyService service.ApiKeyService
	}
)

func NewCreateApiKeyHandler(
	apiKeyService service.ApiKeyService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) CreateApiKeyHandler {
	return decorator.ApplyCommandDecorators[CreateApiKeyCommand, *domain.IssuedApiKey](
		createApiKeyHandler{apiKeyService: apiKeyService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h createApiKeyHandler) Handle(ctx context.Context, cmd CreateApiKeyCommand) (*domain.IssuedApiKey, error) {
	return h.apiKeyService.Create(ctx, cmd.Name, cmd.Scopes, cmd.ExpiresAt)
}

func NewRevokeApiKeyHandler(
	apiKeyService service.ApiKeyService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) RevokeApiKeyHandler {
	return decorator.ApplyCommandDecorators[RevokeApiKeyCommand, struct{}](
		revokeApiKeyHandler{apiKeyService: apiKeyService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h revokeApiKeyHandler) Handle(ctx context.Context, cmd RevokeApiKeyCommand) (struct{}, error) {
	return struct{}{}, h.apiKeyService.Revoke(ctx, cmd.ID)
}
