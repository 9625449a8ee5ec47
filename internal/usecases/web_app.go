package usecases

import (
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

type (
	WebApplication struct {
		Commands Commands
		Queries  Queries
	}

	// Services are the application services the web handlers are built on.
	Services struct {
		Orders    service.OrderService
		ApiKeys   service.ApiKeyService
		Workflows service.WorkflowService
		Webhooks  service.WebhookService
		Batch     service.BatchOperationsService
		Admin     service.AdminService
	}

	Commands struct {
		CreateOrderHandler          commands.CreateOrderHandler
		UpdateOrderHandler          commands.UpdateOrderHandler
		DeleteOrderHandler          commands.DeleteOrderHandler
		RequestOrderDocumentHandler commands.RequestOrderDocumentHandler
		BulkUpdateStatusHandler     commands.BulkUpdateStatusHandler
		BulkNotifyHandler           commands.BulkNotifyHandler
		InvalidateCacheHandler      commands.InvalidateCacheHandler
		CreateApiKeyHandler         commands.CreateApiKeyHandler
		RevokeApiKeyHandler         commands.RevokeApiKeyHandler
		CreateWorkflowHandler       commands.CreateWorkflowHandler
		UpdateWorkflowHandler       commands.UpdateWorkflowHandler
		DeleteWorkflowHandler       commands.DeleteWorkflowHandler
		IngestWebhookOrderHandler   commands.IngestWebhookOrderHandler
		HandleAuthEmailHandler      commands.HandleAuthEmailHandler
		CreateScraperJobHandler     commands.CreateScraperJobHandler
	}

	Queries struct {
		FetchOrderQueryHandler           queries.FetchOrderQueryHandler
		ListOrdersQueryHandler           queries.ListOrdersQueryHandler
		ListApiKeysQueryHandler          queries.ListApiKeysQueryHandler
		AuthenticateApiKeyQueryHandler   queries.AuthenticateApiKeyQueryHandler
		FetchWorkflowQueryHandler        queries.FetchWorkflowQueryHandler
		ListWorkflowsQueryHandler        queries.ListWorkflowsQueryHandler
		FetchDashboardStatsQueryHandler  queries.FetchDashboardStatsQueryHandler
		FetchQueueStatsQueryHandler      queries.FetchQueueStatsQueryHandler
		SearchLogsQueryHandler           queries.SearchLogsQueryHandler
		ListScraperJobsQueryHandler      queries.ListScraperJobsQueryHandler
		LookupAirtableRecordQueryHandler queries.LookupAirtableRecordQueryHandler
		FetchReadinessReportQueryHandler queries.FetchReadinessReportQueryHandler
		FetchLivenessReportQueryHandler  queries.FetchLivenessReportQueryHandler
		FetchHealthReportQueryHandler    queries.FetchHealthReportQueryHandler
	}
)

func NewWebApplication(
	services Services,
	logger infrastructure.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient decorator.MetricsClient,
) *WebApplication {
	return &WebApplication{
		Commands: Commands{
			CreateOrderHandler:          commands.NewCreateOrderHandler(services.Orders, logger, tracerProvider, metricsClient),
			UpdateOrderHandler:          commands.NewUpdateOrderHandler(services.Orders, logger, tracerProvider, metricsClient),
			DeleteOrderHandler:          commands.NewDeleteOrderHandler(services.Orders, logger, tracerProvider, metricsClient),
			RequestOrderDocumentHandler: commands.NewRequestOrderDocumentHandler(services.Orders, logger, tracerProvider, metricsClient),
			BulkUpdateStatusHandler:     commands.NewBulkUpdateStatusHandler(services.Batch, logger, tracerProvider, metricsClient),
			BulkNotifyHandler:           commands.NewBulkNotifyHandler(services.Batch, logger, tracerProvider, metricsClient),
			InvalidateCacheHandler:      commands.NewInvalidateCacheHandler(services.Batch, logger, tracerProvider, metricsClient),
			CreateApiKeyHandler:         commands.NewCreateApiKeyHandler(services.ApiKeys, logger, tracerProvider, metricsClient),
			RevokeApiKeyHandler:         commands.NewRevokeApiKeyHandler(services.ApiKeys, logger, tracerProvider, metricsClient),
			CreateWorkflowHandler:       commands.NewCreateWorkflowHandler(services.Workflows, logger, tracerProvider, metricsClient),
			UpdateWorkflowHandler:       commands.NewUpdateWorkflowHandler(services.Workflows, logger, tracerProvider, metricsClient),
			DeleteWorkflowHandler:       commands.NewDeleteWorkflowHandler(services.Workflows, logger, tracerProvider, metricsClient),
			IngestWebhookOrderHandler:   commands.NewIngestWebhookOrderHandler(services.Webhooks, logger, tracerProvider, metricsClient),
			HandleAuthEmailHandler:      commands.NewHandleAuthEmailHandler(services.Webhooks, logger, tracerProvider, metricsClient),
			CreateScraperJobHandler:     commands.NewCreateScraperJobHandler(services.Admin, logger, tracerProvider, metricsClient),
		},
		Queries: Queries{
			FetchOrderQueryHandler: queries.NewFetchOrderQueryHandler(
				services.Orders, logger, tracerProvider, metricsClient,
			),
			ListOrdersQueryHandler: queries.NewListOrdersQueryHandler(
				services.Orders, logger, tracerProvider, metricsClient,
			),
			ListApiKeysQueryHandler: queries.NewListApiKeysQueryHandler(
				services.ApiKeys, logger, tracerProvider, metricsClient,
			),
			AuthenticateApiKeyQueryHandler: queries.NewAuthenticateApiKeyQueryHandler(
				services.ApiKeys, logger, tracerProvider, metricsClient,
			),
			FetchWorkflowQueryHandler: queries.NewFetchWorkflowQueryHandler(
				services.Workflows, logger, tracerProvider, metricsClient,
			),
			ListWorkflowsQueryHandler: queries.NewListWorkflowsQueryHandler(
				services.Workflows, logger, tracerProvider, metricsClient,
			),
			FetchDashboardStatsQueryHandler: queries.NewFetchDashboardStatsQueryHandler(
				services.Admin, logger, tracerProvider, metricsClient,
			),
			FetchQueueStatsQueryHandler: queries.NewFetchQueueStatsQueryHandler(
				services.Admin, logger, tracerProvider, metricsClient,
			),
			SearchLogsQueryHandler: queries.NewSearchLogsQueryHandler(
				services.Admin, logger, tracerProvider, metricsClient,
			),
			ListScraperJobsQueryHandler: queries.NewListScraperJobsQueryHandler(
				services.Admin, logger, tracerProvider, metricsClient,
			),
			LookupAirtableRecordQueryHandler: queries.NewLookupAirtableRecordQueryHandler(
				services.Admin, logger, tracerProvider, metricsClient,
			),
			FetchReadinessReportQueryHandler: queries.NewFetchReadinessReportQueryHandler(
				services.Admin, logger, tracerProvider, metricsClient,
			),
			FetchLivenessReportQueryHandler: queries.NewFetchLivenessReportQueryHandler(
				services.Admin, logger, tracerProvider, metricsClient,
			),
			FetchHealthReportQueryHandler: queries.NewFetchHealthReportQueryHandler(
				services.Admin, logger, tracerProvider, metricsClient,
			),
		},
	}
}
