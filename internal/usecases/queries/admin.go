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
	FetchDashboardStatsQuery struct{}

	FetchQueueStatsQuery struct{}

	SearchLogsQuery struct {
		Filter domain.LogFilter
		Page   domain.PageRequest
	}

	ListScraperJobsQuery struct {
		Status domain.ScraperJobStatus
		Page   domain.PageRequest
	}

	LookupAirtableRecordQuery struct {
		Request domain.AirtableLookupRequest
	}

	FetchDashboardStatsQueryHandler  decorator.QueryHandler[FetchDashboardStatsQuery, *domain.DashboardStats]
	FetchQueueStatsQueryHandler      decorator.QueryHandler[FetchQueueStatsQuery, []domain.QueueStats]
	SearchLogsQueryHandler           decorator.QueryHandler[SearchLogsQuery, domain.Page[*domain.LogEntry]]
	ListScraperJobsQueryHandler      decorator.QueryHandler[ListScraperJobsQuery, domain.Page[*domain.ScraperJob]]
	LookupAirtableRecordQueryHandler decorator.QueryHandler[LookupAirtableRecordQuery, *domain.AirtableLookupResult]

	fetchDashboardStatsQueryHandler struct {
		adminService service.AdminService
	}

	fetchQueueStatsQueryHandler struct {
		adminService service.AdminService
	}

	searchLogsQueryHandler struct {
		adminService service.AdminService
	}

	listScraperJobsQueryHandler struct {
		adminService service.AdminService
	}

	lookupAirtableRecordQueryHandler struct {
		adminService service.AdminService
	}
)

func NewFetchDashboardStatsQueryHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchDashboardStatsQueryHandler {
	return decorator.ApplyQueryDecorators[FetchDashboardStatsQuery, *domain.DashboardStats](
		fetchDashboardStatsQueryHandler{adminService: adminService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h fetchDashboardStatsQueryHandler) Execute(ctx context.Context, _ FetchDashboardStatsQuery) (*domain.DashboardStats, error) {
	return h.adminService.FetchDashboardStats(ctx)
}

func NewFetchQueueStatsQueryHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchQueueStatsQueryHandler {
	return decorator.ApplyQueryDecorators[FetchQueueStatsQuery, []domain.QueueStats](
		fetchQueueStatsQueryHandler{adminService: adminService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h fetchQueueStatsQueryHandler) Execute(ctx context.Context, _ FetchQueueStatsQuery) ([]domain.QueueStats, error) {
	return h.adminService.FetchQueueStats(ctx)
}

func NewSearchLogsQueryHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) SearchLogsQueryHandler {
	return decorator.ApplyQueryDecorators[SearchLogsQuery, domain.Page[*domain.LogEntry]](
		searchLogsQueryHandler{adminService: adminService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h searchLogsQueryHandler) Execute(ctx context.Context, query SearchLogsQuery) (domain.Page[*domain.LogEntry], error) {
	return h.adminService.SearchLogs(ctx, query.Filter, query.Page)
}

func NewListScraperJobsQueryHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) ListScraperJobsQueryHandler {
	return decorator.ApplyQueryDecorators[ListScraperJobsQuery, domain.Page[*domain.ScraperJob]](
		listScraperJobsQueryHandler{adminService: adminService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h listScraperJobsQueryHandler) Execute(ctx context.Context, query ListScraperJobsQuery) (domain.Page[*domain.ScraperJob], error) {
	return h.adminService.ListScraperJobs(ctx, query.Status, query.Page)
}

func NewLookupAirtableRecordQueryHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) LookupAirtableRecordQueryHandler {
	return decorator.ApplyQueryDecorators[LookupAirtableRecordQuery, *domain.AirtableLookupResult](
		lookupAirtableRecordQueryHandler{adminService: adminService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h lookupAirtableRecordQueryHandler) Execute(
	ctx context.Context,
	query LookupAirtableRecordQuery,
) (*domain.AirtableLookupResult, error) {
	return h.adminService.LookupAirtableRecord(ctx, query.Request)
}
