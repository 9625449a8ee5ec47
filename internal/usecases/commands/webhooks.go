package commands

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
)

type (
	IngestWebhookOrderCommand struct {
		Source string
		Body   []byte
	}

	// IngestWebhookOrderResult reports the stored order and whether it was new.
	IngestWebhookOrderResult struct {
		Order   *domain.Order
		Created bool
	}

	HandleAuthEmailCommand struct {
		Headers http.Header
		Body    []byte
	}

	IngestWebhookOrderHandler decorator.CommandHandler[IngestWebhookOrderCommand, *IngestWebhookOrderResult]
	HandleAuthEmailHandler    decorator.CommandHandler[HandleAuthEmailCommand, struct{}]

	ingestWebhookOrderHandler struct {
		webhookService service.WebhookService
	}

	handleAuthEmailHandler struct {
		webhookService service.WebhookService
	}
)

// String keeps raw payloads out of the command log.
func (c IngestWebhookOrderCommand) String() string {
	return "IngestWebhookOrderCommand{Source:" + c.Source + "}"
}

func (c HandleAuthEmailCommand) String() string {
	return "HandleAuthEmailCommand{}"
}

func NewIngestWebhookOrderHandler(
	webhookService service.WebhookService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) IngestWebhookOrderHandler {
	return decorator.ApplyCommandDecorators[IngestWebhookOrderCommand, *IngestWebhookOrderResult](
		ingestWebhookOrderHandler{webhookService: webhookService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h ingestWebhookOrderHandler) Handle(
	ctx context.Context,
	cmd IngestWebhookOrderCommand,
) (*IngestWebhookOrderResult, error) {
	order, created, err := h.webhookService.IngestOrder(ctx, cmd.Source, cmd.Body)
	if err != nil {
		return nil, err
	}

	return &IngestWebhookOrderResult{Order: order, Created: created}, nil
}

func NewHandleAuthEmailHandler(
	webhookService service.WebhookService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) HandleAuthEmailHandler {
	return decorator.ApplyCommandDecorators[HandleAuthEmailCommand, struct{}](
		handleAuthEmailHandler{webhookService: webhookService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h handleAuthEmailHandler) Handle(ctx context.Context, cmd HandleAuthEmailCommand) (struct{}, error) {
	return struct{}{}, h.webhookService.HandleAuthEmail(ctx, cmd.Headers, cmd.Body)
}
