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
	FetchLivenessReportQuery  struct{}
	FetchReadinessReportQuery struct{}
	FetchHealthReportQuery    struct{}

	FetchLivenessReportQueryHandler  decorator.QueryHandler[FetchLivenessReportQuery, domain.HealthReport]
	FetchReadinessReportQueryHandler decorator.QueryHandler[FetchReadinessReportQuery, domain.HealthReport]
	FetchHealthReportQueryHandler    decorator.QueryHandler[FetchHealthReportQuery, domain.HealthReport]

	healthReportQueryHandler[Q any] struct {
		report func(ctx context.Context) domain.HealthReport
	}
)

func (h healthReportQueryHandler[Q]) Execute(ctx context.Context, _ Q) (domain.HealthReport, error) {
	return h.report(ctx), nil
}

func NewFetchLivenessReportQueryHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchLivenessReportQueryHandler {
	return decorator.ApplyQueryDecorators[FetchLivenessReportQuery, domain.HealthReport](
		healthReportQueryHandler[FetchLivenessReportQuery]{report: adminService.FetchLivenessReport},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func NewFetchReadinessReportQueryHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchReadinessReportQueryHandler {
	return decorator.ApplyQueryDecorators[FetchReadinessReportQuery, domain.HealthReport](
		healthReportQueryHandler[FetchReadinessReportQuery]{report: adminService.FetchReadinessReport},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func NewFetchHealthReportQueryHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchHealthReportQueryHandler {
	return decorator.ApplyQueryDecorators[FetchHealthReportQuery, domain.HealthReport](
		healthReportQueryHandler[FetchHealthReportQuery]{report: adminService.FetchHealthReport},
		logger,
		tracerProvider,
		metricsClient,
	)
}
