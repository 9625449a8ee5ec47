package queries

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
)

type (
	ListApiKeysQuery struct {
		Page domain.PageRequest
	}

	AuthenticateApiKeyQuery struct {
		Key   string
		Scope string
	}

	ListApiKeysQueryHandler        decorator.QueryHandler[ListApiKeysQuery, domain.Page[*domain.ApiKey]]
	AuthenticateApiKeyQueryHandler decorator.QueryHandler[AuthenticateApiKeyQuery, *domain.Principal]

	listApiKeysQueryHandler struct {
		apiKeyService service.ApiKeyService
	}

	authenticateApiKeyQueryHandler struct {
		apiKeyService service.ApiKeyService
	}
)

// String keeps the key out of the query log.
func (q AuthenticateApiKeyQuery) String() string {
	return "AuthenticateApiKeyQuery{Scope:" + q.Scope + "}"
}

func NewListApiKeysQueryHandler(
	apiKeyService service.ApiKeyService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) ListApiKeysQueryHandler {
	return decorator.ApplyQueryDecorators[ListApiKeysQuery, domain.Page[*domain.ApiKey]](
		listApiKeysQueryHandler{apiKeyService: apiKeyService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h listApiKeysQueryHandler) Execute(ctx context.Context, query ListApiKeysQuery) (domain.Page[*domain.ApiKey], error) {
	return h.apiKeyService.List(ctx, query.Page)
}

func NewAuthenticateApiKeyQueryHandler(
	apiKeyService service.ApiKeyService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) AuthenticateApiKeyQueryHandler {
	return decorator.ApplyQueryDecorators[AuthenticateApiKeyQuery, *domain.Principal](
		authenticateApiKeyQueryHandler{apiKeyService: apiKeyService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h authenticateApiKeyQueryHandler) Execute(ctx context.Context, query AuthenticateApiKeyQuery) (*domain.Principal, error) {
	return h.apiKeyService.Authenticate(ctx, query.Key, query.Scope)
}
